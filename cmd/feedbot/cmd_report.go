package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/migrator"
	"github.com/pkgforge/feedbot/internal/report"
)

// MakeStatusReportCmd implements make-status-report.
type MakeStatusReportCmd struct {
	Serve bool   `help:"Serve the report over HTTP instead of printing it to stdout."`
	Addr  string `help:"Address to serve on, when --serve is given." default:":8080"`
}

func (c *MakeStatusReportCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}

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
	if len(migrators) == 0 {
		migrators = []migrator.Migrator{}
	}

	rep, err := report.New(st).Generate(ctx, full, migrators)
	if err != nil {
		return err
	}

	if c.Serve {
		return report.Serve(ctx, c.Addr, rep)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("failed to encode status report: %w", err)
	}
	return nil
}
