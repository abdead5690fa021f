package main

import (
	"context"
	"log/slog"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/probe"
)

// UpdateUpstreamVersionsCmd implements update-upstream-versions.
type UpdateUpstreamVersionsCmd struct {
	Job   int `name:"job" help:"This job's shard index (0-based)." default:"0"`
	NJobs int `name:"n-jobs" help:"Total number of shards." default:"1"`
}

func (c *UpdateUpstreamVersionsCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}

	dispatcher := probe.NewDispatcher(cfg.TimeoutSeconds, false)
	res, err := probe.Sweep(context.Background(), st, dispatcher, c.Job, c.NJobs)
	if err != nil {
		return err
	}
	slog.Info("swept upstream versions", "checked", res.Checked, "found", res.Found, "bad", res.Bad,
		"job", c.Job, "n_jobs", c.NJobs)
	return nil
}
