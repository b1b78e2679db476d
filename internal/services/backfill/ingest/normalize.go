package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	perr "contribsync/internal/platform/errors"
	"contribsync/internal/services/backfill/domain"
)

// BackfillSource tags rows written by this tool in the payload provenance
const BackfillSource = "workspace_backfill"

// Normalizer converts raw feed records into the cache's canonical shape.
// Pure per record: no I/O, no retained state beyond run provenance
type Normalizer struct {
	runID string
	now   func() time.Time
}

// NewNormalizer builds a normalizer stamping the given run id into provenance
func NewNormalizer(runID string) *Normalizer {
	return &Normalizer{runID: runID, now: time.Now}
}

// Normalize builds a NormalizedEvent from a raw feed record.
// It fails with a validation error when repo.name does not contain exactly
// one owner/name separator, or when the record's timestamp is unparseable
func (n *Normalizer) Normalize(ev domain.RawEvent) (domain.NormalizedEvent, error) {
	owner, name, err := splitFullName(ev.Repo.Name)
	if err != nil {
		return domain.NormalizedEvent{}, err
	}

	createdAt, terr := time.Parse(time.RFC3339, ev.CreatedAt)
	if terr != nil {
		return domain.NormalizedEvent{}, perr.Wrapf(terr, perr.ErrorCodeValidation,
			"event %s has malformed created_at %q", ev.ID, ev.CreatedAt)
	}

	nowUTC := n.now().UTC()

	// fixed provenance plus the raw fields the cache keeps verbatim
	payload := map[string]any{
		"actor": map[string]any{
			"id":         ev.Actor.ID,
			"login":      ev.Actor.Login,
			"avatar_url": ev.Actor.AvatarURL,
		},
		"repo": map[string]any{
			"id":   ev.Repo.ID,
			"name": ev.Repo.Name,
			"url":  ev.Repo.URL,
		},
		"public":          ev.Public,
		"backfill_source": BackfillSource,
		"backfill_date":   nowUTC.Format(time.RFC3339),
		"backfill_run_id": n.runID,
	}
	if ev.Action != "" {
		payload["action"] = ev.Action
	} else {
		payload["action"] = nil
	}

	// the event's own payload wins on key collision
	if len(ev.Payload) > 0 {
		var extra map[string]any
		if err := json.Unmarshal(ev.Payload, &extra); err != nil {
			return domain.NormalizedEvent{}, perr.Wrapf(err, perr.ErrorCodeValidation,
				"event %s has non-object payload", ev.ID)
		}
		for k, v := range extra {
			payload[k] = v
		}
	}

	return domain.NormalizedEvent{
		EventID:         ev.ID,
		EventType:       ev.Type,
		ActorLogin:      ev.Actor.Login,
		RepositoryOwner: owner,
		RepositoryName:  name,
		Payload:         payload,
		CreatedAt:       createdAt,
		ProcessingNotes: fmt.Sprintf("Workspace backfill on %s (run %s)", nowUTC.Format(time.RFC3339), n.runID),
	}, nil
}

// splitFullName splits "owner/name", requiring exactly one separator
func splitFullName(full string) (string, string, error) {
	parts := strings.Split(full, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", perr.Validationf("malformed repo full name %q", full)
	}
	return parts[0], parts[1], nil
}
