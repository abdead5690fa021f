package main

import (
	"context"
	"log/slog"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/discover"
	"github.com/pkgforge/feedbot/internal/graph"
)

// GatherAllFeedstocksCmd implements gather-all-feedstocks.
type GatherAllFeedstocksCmd struct{}

func (c *GatherAllFeedstocksCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}
	gw := buildGateway(cli, cfg)

	res, err := discover.Run(context.Background(), st, gw, cfg.Org)
	if err != nil {
		return err
	}
	slog.Info("gathered feedstocks", "discovered", res.Discovered, "created", res.Created)
	return nil
}

// MakeGraphCmd implements make-graph.
type MakeGraphCmd struct {
	UpdateNodesAndEdges bool `name:"update-nodes-and-edges" help:"Recompute and persist requirement edges, not just load the existing graph."`
}

func (c *MakeGraphCmd) Run(cli *CLI) error {
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

	g, err := graph.Build(ctx, st, names)
	if err != nil {
		return err
	}
	slog.Info("built dependency graph", "nodes", len(g.Names()))

	if c.UpdateNodesAndEdges {
		if err := graph.Persist(ctx, st, g); err != nil {
			return err
		}
		slog.Info("persisted condensed graph summary")
	}
	return nil
}
