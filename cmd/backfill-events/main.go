// Command backfill-events reconciles the GitHub events feed against the
// github_events_cache table for every repository tracked in workspaces.
//
// Usage: backfill-events [workspace-id]
// Without an argument every workspace is targeted. Exit code 0 covers normal
// completion including "no repositories found"; 1 means a fatal setup error
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"contribsync/internal/modkit"
	"contribsync/internal/platform/config"
	"contribsync/internal/platform/logger"
	"contribsync/internal/platform/store"

	backfillmod "contribsync/internal/services/backfill/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()

	// A placeholder token from a copied .env template is as fatal as a missing one
	token := root.MayString("GITHUB_TOKEN", "")
	if token == "" || strings.HasPrefix(token, "your_") {
		l.Fatal().Msg("valid GITHUB_TOKEN is required")
	}

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Fatal().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	flag.Parse()
	workspaceID := flag.Arg(0)

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}
	mod := backfillmod.New(deps)

	// Interrupts stop the run between repositories; committed rows stay put
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithRun(ctx, mod.RunID(), workspaceID)

	if workspaceID != "" {
		logger.C(ctx).Info().Msg("backfilling a single workspace")
	} else {
		logger.C(ctx).Info().Msg("backfilling all workspace repositories")
	}

	if _, err := mod.Ports().Runner.Run(ctx, workspaceID); err != nil {
		logger.C(ctx).Fatal().Err(err).Msg("backfill run failed")
	}
}
