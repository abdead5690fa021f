package main

import (
	"context"
	"log/slog"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/prtracker"
)

// UpdatePRsCmd implements update-prs.
type UpdatePRsCmd struct {
	Job   int `name:"job" help:"This job's shard index (0-based)." default:"0"`
	NJobs int `name:"n-jobs" help:"Total number of shards." default:"1"`
}

func (c *UpdatePRsCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}
	gw := buildGateway(cli, cfg)

	ctx := context.Background()
	specs, err := resolveSpecs(ctx, st, cli)
	if err != nil {
		return err
	}

	tr := prtracker.New(st, gw)
	res, err := tr.Run(ctx, specKeys(specs), prtracker.Shard{K: c.Job, N: c.NJobs})
	if err != nil {
		return err
	}
	slog.Info("tracked PRs", "checked", res.Checked, "updated", res.Updated, "errors", res.Errors,
		"job", c.Job, "n_jobs", c.NJobs)
	return nil
}
