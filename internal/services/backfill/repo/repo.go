// Package repo provides postgres access for the workspace events backfill
package repo

import (
	"context"
	"encoding/json"

	"contribsync/internal/modkit/repokit"
	perr "contribsync/internal/platform/errors"
	"contribsync/internal/platform/store"
	"contribsync/internal/services/backfill/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// ListRepositories returns every repository tracked by a workspace, ordered by
// workspace then owner/name; workspaceID narrows to one workspace when set
func (r *queries) ListRepositories(ctx context.Context, workspaceID string) ([]domain.RepositoryTarget, error) {
	const base = `
		SELECT r.owner, r.name, w.name AS workspace_name
		FROM workspace_repositories wr
		JOIN repositories r ON wr.repository_id = r.id
		JOIN workspaces w ON wr.workspace_id = w.id
	`

	var (
		rows repokit.Rows
		err  error
	)
	if workspaceID != "" {
		rows, err = r.q.Query(ctx, base+`
			WHERE wr.workspace_id = $1
			ORDER BY w.name, r.owner, r.name
		`, workspaceID)
	} else {
		rows, err = r.q.Query(ctx, base+`
			ORDER BY w.name, r.owner, r.name
		`)
	}
	if err != nil {
		return nil, perr.FromPostgres(err, "list workspace repositories")
	}
	defer rows.Close()

	var out []domain.RepositoryTarget
	for rows.Next() {
		var t domain.RepositoryTarget
		if err := rows.Scan(&t.Owner, &t.Name, &t.Workspace); err != nil {
			return nil, perr.FromPostgres(err, "scan workspace repository")
		}
		out = append(out, t)
	}
	return out, perr.WrapIf(rows.Err(), perr.ErrorCodeDB, "iterate workspace repositories")
}

// UpsertEvent writes one event into github_events_cache.
// A repeat write for the same (event_id, created_at) key never duplicates the
// row: it only refreshes processed_at and appends to processing_notes, so
// re-running the backfill is always safe
func (r *queries) UpsertEvent(ctx context.Context, ev domain.NormalizedEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeValidation, "serialize payload for event %s", ev.EventID)
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO github_events_cache
			(event_id, event_type, actor_login, repository_owner, repository_name, payload, created_at, processing_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id, created_at) DO UPDATE SET
			processed_at = now(),
			processing_notes = COALESCE(github_events_cache.processing_notes, '') || '; Updated from workspace backfill'
	`,
		ev.EventID, ev.EventType, ev.ActorLogin,
		ev.RepositoryOwner, ev.RepositoryName,
		payload, ev.CreatedAt.UTC(), ev.ProcessingNotes,
	)
	return perr.FromPostgresf(err, "upsert event %s", ev.EventID)
}

// CountEvents returns the total cache row count for the run summary cross-check
func (r *queries) CountEvents(ctx context.Context) (int64, error) {
	n, err := store.Scalar[int64](ctx, r.q, `SELECT COUNT(*) FROM github_events_cache`)
	return n, perr.WrapIf(err, perr.ErrorCodeDB, "count cached events")
}
