// Package service provides the workspace events backfill orchestrator
package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"contribsync/internal/modkit/repokit"
	perr "contribsync/internal/platform/errors"
	"contribsync/internal/platform/logger"
	"contribsync/internal/services/backfill/domain"
)

// Config holds configuration options for the backfill service
type Config struct {
	// DaysBack bounds the event window; <=0 -> 30
	DaysBack int

	// RepoDelay is the pacing delay between repositories (not applied after
	// the last); 0 -> 2s, negative disables
	RepoDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.DaysBack <= 0 {
		c.DaysBack = 30
	}
	if c.RepoDelay == 0 {
		c.RepoDelay = 2 * time.Second
	} else if c.RepoDelay < 0 {
		c.RepoDelay = 0
	}
	return c
}

// Service implements the backfill orchestrator.
//
// Execution is strictly sequential: repositories in directory order, pages in
// ascending order, one committed transaction per record. Failures are
// contained at the level they occur: a bad record is counted and skipped, a
// failing repository is counted and the next one is still attempted; only the
// directory lookup itself is fatal. Pages abandoned on rate-limit exhaustion
// or transient errors are not tracked for targeted retry; the idempotent
// upsert makes a full re-run the recovery path
type Service struct {
	DB      repokit.TxRunner
	Binder  repokit.Binder[domain.StorageRepo]
	Cursors domain.CursorFactory
	Norm    domain.NormalizerPort
	Cfg     Config

	validate *validator.Validate
}

// New constructs the backfill service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	cursors domain.CursorFactory,
	norm domain.NormalizerPort,
	cfg Config,
) *Service {
	if db == nil {
		panic("backfill.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("backfill.Service requires a non nil Repo binder")
	}
	if cursors == nil {
		panic("backfill.Service requires a non nil CursorFactory")
	}
	if norm == nil {
		panic("backfill.Service requires a non nil Normalizer")
	}
	return &Service{
		DB:       db,
		Binder:   binder,
		Cursors:  cursors,
		Norm:     norm,
		Cfg:      cfg.withDefaults(),
		validate: validator.New(),
	}
}

// Run implements domain.RunnerPort.
// The returned stats are valid even when err != nil or the ctx was cancelled;
// the summary is logged from whatever state accumulated
func (s *Service) Run(ctx context.Context, workspaceID string) (domain.RunStats, error) {
	log := logger.C(ctx)
	var stats domain.RunStats
	startWall := time.Now()

	log.Info().Int("days_back", s.Cfg.DaysBack).Str("workspace_id", workspaceID).Msg("starting workspace events backfill")

	targets, err := s.listTargets(ctx, workspaceID)
	if err != nil {
		// the directory lookup failing means no run is possible
		return stats, perr.WrapIf(err, perr.ErrorCodeDB, "workspace directory lookup failed")
	}
	if len(targets) == 0 {
		log.Info().Msg("no repositories found in workspaces; nothing to do")
		s.summarize(ctx, stats, startWall)
		return stats, nil
	}
	log.Info().Int("repositories", len(targets)).Msg("resolved workspace repositories")

	for i, tgt := range targets {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", len(targets)-i).Msg("backfill interrupted; committed progress is preserved")
			break
		}

		rctx := logger.WithRepo(ctx, tgt.FullName())
		logger.C(rctx).Info().
			Int("index", i+1).Int("total", len(targets)).
			Str("workspace", tgt.Workspace).
			Msg("processing repository")

		if err := s.backfillRepository(rctx, tgt, &stats); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue // the loop head logs the interrupt and stops
			}
			stats.Errors++
			logger.C(rctx).Error().Err(err).Msg("repository backfill failed; moving on")
		}

		if i < len(targets)-1 && s.Cfg.RepoDelay > 0 {
			if err := sleepCtx(ctx, s.Cfg.RepoDelay); err != nil {
				continue // cancelled during pacing; loop head handles it
			}
		}
	}

	s.summarize(ctx, stats, startWall)
	return stats, nil
}

func (s *Service) listTargets(ctx context.Context, workspaceID string) ([]domain.RepositoryTarget, error) {
	var targets []domain.RepositoryTarget
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		t, e := s.Binder.Bind(q).ListRepositories(ctx, workspaceID)
		if e != nil {
			return e
		}
		targets = t
		return nil
	})
	return targets, err
}

// backfillRepository fetches, normalizes, and writes one repository's events.
// Record-level failures are counted inside; the returned error covers only
// cancellation, which the caller does not count
func (s *Service) backfillRepository(ctx context.Context, tgt domain.RepositoryTarget, stats *domain.RunStats) error {
	log := logger.C(ctx)

	// cursors are single-use; build a fresh one per repository
	cur := s.Cursors.New()
	events, calls, ferr := cur.FetchEvents(ctx, tgt.Owner, tgt.Name, s.Cfg.DaysBack)
	stats.APICalls += calls
	stats.EventsFetched += len(events)
	if ferr != nil {
		if errors.Is(ferr, context.Canceled) || errors.Is(ferr, context.DeadlineExceeded) {
			return ferr
		}
		// repository-local: keep whatever was collected before the failure
		stats.Errors++
		log.Warn().Err(ferr).Msg("event fetch aborted; writing events collected so far")
	}

	if len(events) == 0 {
		log.Info().Msg("no events found")
		return nil
	}

	inserted, failed := 0, 0
	for _, raw := range events {
		if ctx.Err() != nil {
			break // in-flight writes finished; stop before starting another
		}

		ne, err := s.Norm.Normalize(raw)
		if err != nil {
			stats.Errors++
			failed++
			log.Debug().Err(err).Str("event_id", raw.ID).Msg("rejected malformed event")
			continue
		}
		if err := s.validate.Struct(ne); err != nil {
			stats.Errors++
			failed++
			log.Debug().Err(err).Str("event_id", ne.EventID).Msg("rejected incomplete event")
			continue
		}

		if err := s.writeEvent(ctx, ne); err != nil {
			stats.Errors++
			failed++
			log.Warn().Err(err).Str("event_id", ne.EventID).Msg("event write failed and was rolled back")
			continue
		}
		stats.EventsInserted++
		inserted++
	}

	log.Info().Int("inserted", inserted).Int("failed", failed).Int("fetched", len(events)).Msg("repository backfill done")
	stats.ReposProcessed++
	return nil
}

// writeEvent commits one record in its own transaction so a failure never
// rolls back previously committed records
func (s *Service) writeEvent(ctx context.Context, ev domain.NormalizedEvent) error {
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).UpsertEvent(ctx, ev)
	})
}

// summarize logs the run counters and cross-checks the store's total row count
func (s *Service) summarize(ctx context.Context, stats domain.RunStats, startWall time.Time) {
	log := logger.C(ctx)
	evt := log.Info().
		Dur("duration", time.Since(startWall)).
		Int("repos_processed", stats.ReposProcessed).
		Int("events_fetched", stats.EventsFetched).
		Int("events_inserted", stats.EventsInserted).
		Int("api_calls", stats.APICalls).
		Int("errors", stats.Errors)

	// the cross-check still runs after an interrupt
	cctx := context.WithoutCancel(ctx)
	var total int64
	err := s.DB.Tx(cctx, func(q repokit.Queryer) error {
		n, e := s.Binder.Bind(q).CountEvents(cctx)
		if e != nil {
			return e
		}
		total = n
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not read total cached event count")
	} else {
		evt = evt.Int64("total_cached_events", total)
	}
	evt.Msg("backfill complete")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
