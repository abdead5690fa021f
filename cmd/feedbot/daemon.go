package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DaemonCmd implements daemon: an optional convenience wrapper that runs
// the cron-triggered subcommands on a schedule instead of relying on an
// external cron invoking the feedbot binary repeatedly, grounded on
// docbuilder's DaemonCmd/runDaemon (signal.NotifyContext shutdown, a
// goroutine + error channel + select pattern) with docbuilder's own
// file-watching daemon loop replaced by gocron's schedule-driven one.
type DaemonCmd struct {
	ProbeInterval    time.Duration `name:"probe-interval" help:"How often to run update-upstream-versions." default:"6h"`
	TickInterval     time.Duration `name:"tick-interval" help:"How often to run auto-tick." default:"30m"`
	TrackInterval    time.Duration `name:"track-interval" help:"How often to run update-prs." default:"15m"`
	DiscoverInterval time.Duration `name:"discover-interval" help:"How often to run gather-all-feedstocks." default:"24h"`
}

func (d *DaemonCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func() error
	}{
		{"gather-all-feedstocks", d.DiscoverInterval, func() error { return (&GatherAllFeedstocksCmd{}).Run(cli) }},
		{"update-upstream-versions", d.ProbeInterval, func() error { return (&UpdateUpstreamVersionsCmd{NJobs: 1}).Run(cli) }},
		{"auto-tick", d.TickInterval, func() error { return (&AutoTickCmd{}).Run(cli) }},
		{"update-prs", d.TrackInterval, func() error { return (&UpdatePRsCmd{NJobs: 1}).Run(cli) }},
	}

	for _, job := range jobs {
		job := job
		_, err := sched.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(func() {
				if err := job.run(); err != nil {
					slog.Error("daemon job failed", "job", job.name, "error", err)
				}
			}),
			gocron.WithName(job.name),
		)
		if err != nil {
			return err
		}
	}

	sched.Start()
	slog.Info("daemon started", "jobs", len(jobs))

	if cw, err := newConfigWatcher(cli.MigratorsCfg, func() {
		slog.Info("migrators config changed, reloading", "path", cli.MigratorsCfg)
		if err := (&MakeMigratorsCmd{}).Run(cli); err != nil {
			slog.Error("failed to reload migrators config", "error", err)
		}
	}); err != nil {
		slog.Warn("failed to start migrators config watcher, falling back to scheduled reload only", "error", err)
	} else {
		go cw.run(ctx)
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping daemon")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	done := make(chan error, 1)
	go func() { done <- sched.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-stopCtx.Done():
		return stopCtx.Err()
	}
}
