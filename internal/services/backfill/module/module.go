// Package module provides the backfill module wiring
package module

import (
	"github.com/google/uuid"

	"contribsync/internal/adapters/github"
	"contribsync/internal/modkit"
	"contribsync/internal/modkit/repokit"
	"contribsync/internal/services/backfill/domain"
	"contribsync/internal/services/backfill/ingest"
	"contribsync/internal/services/backfill/repo"
	"contribsync/internal/services/backfill/service"
)

// Ports defines the backfill module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the backfill module
type Module struct {
	deps  modkit.Deps
	ports Ports
	runID string
}

// New constructs the backfill module.
// It wires the feed client, cursor factory, normalizer, storage binder, and
// the orchestrator using config from deps.Cfg
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	// DB binder (no deps passed into repo)
	storeBinder := repo.NewPG()

	// Non-DB adapters
	feed := github.NewClient(github.Options{
		BaseURL:   opts.GitHubBaseURL,
		Token:     opts.GitHubToken,
		UserAgent: opts.GitHubUserAgent,
		Timeout:   opts.GitHubTimeout,
	})
	cursors := ingest.NewCursorFactory(feed, ingest.CursorConfig{
		MaxPages:       opts.MaxPages,
		PerPage:        opts.PerPage,
		PageDelay:      opts.PageDelay,
		RateWaitMax:    opts.RateWaitMax,
		RateWaitMargin: opts.RateWaitMargin,
	})
	norm := ingest.NewNormalizer(runID)

	svc := service.New(
		repokit.TxRunner(deps.PG), storeBinder,
		cursors, norm,
		service.Config{
			DaysBack:  opts.DaysBack,
			RepoDelay: opts.RepoDelay,
		},
	)

	m := &Module{deps: deps, runID: runID}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "backfill" }

// Ports returns the module ports
func (m *Module) Ports() Ports { return m.ports }

// RunID returns the provenance id stamped into this run's rows and logs
func (m *Module) RunID() string { return m.runID }
