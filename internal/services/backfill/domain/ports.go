package domain

import (
	"context"
)

// RunnerPort is the public port exposed by the module (what the CLI calls).
// workspaceID narrows the run to one workspace; empty targets all workspaces
type RunnerPort interface {
	Run(ctx context.Context, workspaceID string) (RunStats, error)
}

// StorageRepo is the storage repository interface
type StorageRepo interface {
	// ListRepositories returns the workspace repository targets, optionally
	// scoped to one workspace id
	ListRepositories(ctx context.Context, workspaceID string) ([]RepositoryTarget, error)

	// UpsertEvent writes one normalized event; on a (event_id, created_at)
	// conflict only processed_at and processing_notes change
	UpsertEvent(ctx context.Context, ev NormalizedEvent) error

	// CountEvents returns the total cache row count for the run summary cross-check
	CountEvents(ctx context.Context) (int64, error)
}

// FeedPort fetches one page of a repository's upstream event feed
type FeedPort interface {
	RepoEvents(ctx context.Context, owner, name string, page, perPage int) (EventsPage, error)
}

// CursorPort drives paginated fetches for one repository until a cutoff.
// The returned call count includes every page fetch regardless of outcome.
// A non-nil error is repository-local: events collected before the failure
// are still returned and remain usable
type CursorPort interface {
	FetchEvents(ctx context.Context, owner, name string, daysBack int) (events []RawEvent, apiCalls int, err error)
}

// CursorFactory builds a fresh cursor; cursors are not restartable and one is
// created per repository per run
type CursorFactory interface {
	New() CursorPort
}

// NormalizerPort converts a raw feed record into the cache's canonical shape
type NormalizerPort interface {
	Normalize(ev RawEvent) (NormalizedEvent, error)
}
