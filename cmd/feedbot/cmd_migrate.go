package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/forge"
	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/migrator"
	"github.com/pkgforge/feedbot/internal/scheduler"
	"github.com/pkgforge/feedbot/internal/workspace"
)

// MakeMigratorsCmd implements make-migrators: validate the configured
// migrator registration file and persist it into the store so a process
// without the YAML file on disk (a different shard, the daemon) can still
// reconstruct the registry.
type MakeMigratorsCmd struct{}

func (c *MakeMigratorsCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	doc, err := config.LoadMigratorsFile(cli.MigratorsCfg)
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}

	specs := toMigratorSpecs(doc.Migrators)
	if err := migrator.PersistSpecs(context.Background(), st, specs); err != nil {
		return err
	}
	slog.Info("initialized migrators", "count", len(specs))
	return nil
}

// AutoTickCmd implements auto-tick.
type AutoTickCmd struct {
	PRRetryWindowDays int `name:"pr-retry-window-days" help:"Override PR_RETRY_WINDOW for this run."`
}

func (c *AutoTickCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}
	gw := buildGateway(cli, cfg)

	if err := workspace.EmptyRoot(cfg.TmpDir); err != nil {
		return err
	}
	defer func() {
		if err := workspace.EmptyRoot(cfg.TmpDir); err != nil {
			slog.Error("failed to empty scratch root after cycle", "error", err)
		}
	}()

	ctx := context.Background()
	names, err := allPackageNames(ctx, st)
	if err != nil {
		return err
	}
	full, err := graph.Build(ctx, st, names)
	if err != nil {
		return err
	}
	migrators, err := loadMigrators(ctx, st, cli, full)
	if err != nil {
		return err
	}

	rb := forge.NewRateBudget(cfg.RateFloor * 10)
	if remaining, err := gw.RateRemaining(ctx); err == nil {
		rb.Set(remaining)
	}

	sched := scheduler.New(st, gw, rb)

	retryWindowDays := cfg.PRRetryWindow
	if c.PRRetryWindowDays > 0 {
		retryWindowDays = c.PRRetryWindowDays
	}
	budget := scheduler.Budget{
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		RateFloor:   cfg.RateFloor,
		DiskFloorGB: cfg.DiskFloorGB,
		MemFloorGB:  cfg.MemoryFloorGB,
		RetryWindow: time.Duration(retryWindowDays) * 24 * time.Hour,
	}

	report, runErr := sched.RunCycle(ctx, migrators, full, budget)
	for _, mr := range report.Migrators {
		slog.Info("migrator cycle complete", "migrator", mr.MigratorKey,
			"attempted", len(mr.Attempted), "prs_opened", mr.PRsOpened, "stopped", string(mr.Stopped))
	}
	if runErr != nil {
		// The scheduler's own sentinel for an exhausted rate budget is a
		// clean, expected stop, not a failure: reclassify it so the CLI
		// error adapter exits 2 rather than 1 (spec.md §6, §7).
		if errors.Is(runErr, scheduler.ErrRateLimitExhausted) {
			return schedulerStopError(runErr)
		}
		return runErr
	}
	return nil
}
