package github

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRateHeaders(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		headers    map[string]string
		remaining  int
		reset      time.Time
		retryAfter int
	}{
		{
			name: "full set",
			headers: map[string]string{
				"X-RateLimit-Remaining": "3",
				"X-RateLimit-Reset":     "1714564800",
				"Retry-After":           "120",
			},
			remaining:  3,
			reset:      time.Unix(1714564800, 0).UTC(),
			retryAfter: 120,
		},
		{
			name:    "absent headers",
			headers: map[string]string{},
		},
		{
			name: "garbage values",
			headers: map[string]string{
				"X-RateLimit-Remaining": "lots",
				"X-RateLimit-Reset":     "soon",
				"Retry-After":           "-",
			},
		},
		{
			name:    "zero reset means unknown",
			headers: map[string]string{"X-RateLimit-Reset": "0"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			rem, reset, ra := parseRateHeaders(h)
			if rem != tc.remaining || ra != tc.retryAfter {
				t.Fatalf("got remaining=%d retryAfter=%d, want %d/%d", rem, ra, tc.remaining, tc.retryAfter)
			}
			if !reset.Equal(tc.reset) {
				t.Fatalf("got reset=%v, want %v", reset, tc.reset)
			}
		})
	}
}
