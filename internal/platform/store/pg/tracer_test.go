package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func TestCompact(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"select 1", "select 1"},
		{"  select   1  ", " select 1 "},
		{"SELECT\t*\nFROM\r\ttable WHERE  a =  1", "SELECT * FROM table WHERE a = 1"},
		{"\n\nA\n\tB  C\r\nD", " A B C D"},
		{"", ""},
	}
	for i, c := range cases {
		if got := compact(c.in); got != c.want {
			t.Fatalf("case %d: compact(%q) = %q, want %q", i, c.in, got, c.want)
		}
	}
}

func TestTracer_EmitsInfoAndWarn_WithFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf))

	type logLine struct {
		Level     string  `json:"level"`
		ElapsedMS float64 `json:"elapsed_ms"`
		Slow      bool    `json:"slow"`
		SQL       string  `json:"sql"`
		Args      any     `json:"args"`
		Error     string  `json:"error"`
		Message   string  `json:"message"`
	}

	// info path (Slow=false)
	ev := QueryEvent{
		SQL:       "INSERT  INTO \n github_events_cache\tVALUES ($1)",
		Args:      []any{"evt-1"},
		ElapsedUS: 12345, // 12.345 ms
		Err:       errors.New("boom"),
		Slow:      false,
	}
	tr.OnQuery(context.Background(), ev)

	var line logLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("unmarshal info log: %v\nraw=%s", err, buf.String())
	}
	if line.Level != "info" {
		t.Fatalf("expected level=info, got %q", line.Level)
	}
	wantMs := float64(ev.ElapsedUS) / 1000.0
	if math.Abs(line.ElapsedMS-wantMs) > 0.0005 {
		t.Fatalf("elapsed_ms mismatch: got %v want %v", line.ElapsedMS, wantMs)
	}
	if line.Slow {
		t.Fatalf("slow should be false")
	}
	if line.SQL != "INSERT INTO github_events_cache VALUES ($1)" {
		t.Fatalf("sql not compacted as expected: %q", line.SQL)
	}
	if arr, ok := line.Args.([]any); !ok || len(arr) != 1 || arr[0].(string) != "evt-1" {
		t.Fatalf("args unexpected: %#v", line.Args)
	}
	if line.Error != "boom" {
		t.Fatalf("error field mismatch: %q", line.Error)
	}
	if line.Message != "pg query" {
		t.Fatalf("message mismatch: %q", line.Message)
	}

	// warn path (Slow=true)
	buf.Reset()
	tr.OnQuery(context.Background(), QueryEvent{SQL: "select 1", Slow: true})
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("unmarshal warn log: %v\nraw=%s", err, buf.String())
	}
	if line.Level != "warn" || !line.Slow {
		t.Fatalf("expected warn/slow line, got %+v", line)
	}
}
