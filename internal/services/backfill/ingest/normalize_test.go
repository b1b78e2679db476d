package ingest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	perr "contribsync/internal/platform/errors"
)

func newTestNormalizer(runID string) *Normalizer {
	n := NewNormalizer(runID)
	n.now = func() time.Time { return testNow }
	return n
}

func TestNormalize_MalformedFullNames(t *testing.T) {
	t.Parallel()

	cases := []string{"noslash", "a/b/c", "/b", "a/", "", "/"}
	for _, full := range cases {
		t.Run(full, func(t *testing.T) {
			t.Parallel()
			ev := mkEvent("1", "WatchEvent", testNow.Add(-time.Hour))
			ev.Repo.Name = full
			_, err := newTestNormalizer("run").Normalize(ev)
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("full name %q: expected validation error, got %v", full, err)
			}
		})
	}
}

func TestNormalize_Provenance(t *testing.T) {
	t.Parallel()

	ev := mkEvent("123", "StarEvent", testNow.Add(-time.Hour))
	got, err := newTestNormalizer("run-abc").Normalize(ev)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}

	if got.EventID != "123" || got.EventType != "StarEvent" || got.ActorLogin != "octocat" {
		t.Fatalf("identity fields wrong: %+v", got)
	}
	if got.RepositoryOwner != "octo" || got.RepositoryName != "hello" {
		t.Fatalf("repo split wrong: %q/%q", got.RepositoryOwner, got.RepositoryName)
	}
	if got.Payload["backfill_source"] != BackfillSource {
		t.Fatalf("expected backfill_source %q, got %v", BackfillSource, got.Payload["backfill_source"])
	}
	if got.Payload["backfill_run_id"] != "run-abc" {
		t.Fatalf("expected run id in payload, got %v", got.Payload["backfill_run_id"])
	}
	if got.Payload["backfill_date"] != testNow.Format(time.RFC3339) {
		t.Fatalf("expected frozen backfill_date, got %v", got.Payload["backfill_date"])
	}
	if !strings.Contains(got.ProcessingNotes, "run-abc") || !strings.Contains(got.ProcessingNotes, testNow.Format(time.RFC3339)) {
		t.Fatalf("notes missing run provenance: %q", got.ProcessingNotes)
	}
	actor, ok := got.Payload["actor"].(map[string]any)
	if !ok || actor["login"] != "octocat" {
		t.Fatalf("actor payload wrong: %v", got.Payload["actor"])
	}
}

func TestNormalize_ActionNilWhenAbsent(t *testing.T) {
	t.Parallel()

	ev := mkEvent("1", "IssuesEvent", testNow.Add(-time.Hour))
	got, err := newTestNormalizer("run").Normalize(ev)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if v, present := got.Payload["action"]; !present || v != nil {
		t.Fatalf("expected explicit nil action, got %v (present=%v)", v, present)
	}

	ev.Action = "opened"
	got, err = newTestNormalizer("run").Normalize(ev)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Payload["action"] != "opened" {
		t.Fatalf("expected action %q, got %v", "opened", got.Payload["action"])
	}
}

func TestNormalize_RawPayloadWinsOnCollision(t *testing.T) {
	t.Parallel()

	ev := mkEvent("1", "PullRequestEvent", testNow.Add(-time.Hour))
	ev.Payload = json.RawMessage(`{"action":"closed","merged":true}`)

	got, err := newTestNormalizer("run").Normalize(ev)
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if got.Payload["action"] != "closed" {
		t.Fatalf("raw payload must win on collision, got action=%v", got.Payload["action"])
	}
	if got.Payload["merged"] != true {
		t.Fatalf("raw payload keys must carry through, got %v", got.Payload["merged"])
	}
	// provenance survives the overlay
	if got.Payload["backfill_source"] != BackfillSource {
		t.Fatalf("provenance lost under overlay: %v", got.Payload["backfill_source"])
	}
}

func TestNormalize_NonObjectPayloadRejected(t *testing.T) {
	t.Parallel()

	ev := mkEvent("1", "WatchEvent", testNow.Add(-time.Hour))
	ev.Payload = json.RawMessage(`["not","an","object"]`)
	_, err := newTestNormalizer("run").Normalize(ev)
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("expected validation error for array payload, got %v", err)
	}
}

func TestNormalize_BadTimestampRejected(t *testing.T) {
	t.Parallel()

	ev := mkEvent("1", "WatchEvent", testNow)
	ev.CreatedAt = "2024-13-99"
	_, err := newTestNormalizer("run").Normalize(ev)
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("expected validation error for bad timestamp, got %v", err)
	}
}
