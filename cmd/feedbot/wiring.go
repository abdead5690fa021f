package main

import (
	"context"
	"os"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/forge"
	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/migrator"
	"github.com/pkgforge/feedbot/internal/store"
)

// schedulerStopError reclassifies a scheduler sentinel (like
// ErrRateLimitExhausted) as a ClassifiedError with CategoryScheduler, so
// CLIErrorAdapter maps it to exit code 2 (a clean, configurable skip)
// instead of the generic unclassified-error exit code 1.
func schedulerStopError(cause error) error {
	return ferrors.SchedulerError(cause.Error()).WithCause(cause).Build()
}

// buildStore assembles the Graph Store from cfg, routing through the mirror
// backend first when --online is set (spec.md §6: "fetch the graph from
// the mirror backend rather than local").
func buildStore(cli *CLI, cfg *config.Config) (*store.Store, error) {
	backends := cfg.GraphBackends
	if cli.Online {
		backends = reorderMirrorFirst(backends)
	}
	return store.Build(store.BuildOptions{
		Backends:      backends,
		FileRoot:      cfg.FileRoot,
		ShardDepth:    cfg.ShardDepth,
		DatabaseURL:   cfg.DatabaseURL,
		MirrorURL:     cfg.MirrorURL,
		MirrorBucket:  cfg.MirrorBucket,
		UseFileCache:  cfg.GraphUseCache,
		FileCacheRoot: cfg.FileCacheRoot,
	})
}

func reorderMirrorFirst(backends []string) []string {
	out := make([]string, 0, len(backends))
	for _, b := range backends {
		if b == "mirror" {
			out = append([]string{b}, out...)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// buildGateway returns a FakeGateway under --dry-run, otherwise a real
// GitHubGateway authenticated with cfg.ForgeToken.
func buildGateway(cli *CLI, cfg *config.Config) forge.Gateway {
	if cli.DryRun {
		return forge.NewFakeGateway()
	}
	return forge.NewGitHubGateway("", cfg.ForgeToken, os.Getenv("FORGE_BOT_LOGIN"))
}

// allPackageNames lists every known package name by stripping the
// "package:" prefix off every matching store key.
func allPackageNames(ctx context.Context, st *store.Store) ([]string, error) {
	keys, err := st.KeysPrefix(ctx, "package:")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, string(k)[len("package:"):])
	}
	return names, nil
}

// loadMigrators resolves the configured migrator registry, preferring the
// YAML file at cli.MigratorsCfg when present and falling back to specs
// previously persisted into the store by make-migrators (so a shard
// without the YAML file on disk can still run).
func loadMigrators(ctx context.Context, st *store.Store, cli *CLI, full *graph.Graph) ([]migrator.Migrator, error) {
	specs, err := resolveSpecs(ctx, st, cli)
	if err != nil {
		return nil, err
	}
	return migrator.Build(specs, full)
}

func resolveSpecs(ctx context.Context, st *store.Store, cli *CLI) ([]migrator.Spec, error) {
	if _, err := os.Stat(cli.MigratorsCfg); err == nil {
		doc, err := config.LoadMigratorsFile(cli.MigratorsCfg)
		if err != nil {
			return nil, err
		}
		return toMigratorSpecs(doc.Migrators), nil
	}
	return migrator.LoadPersistedSpecs(ctx, st)
}

func toMigratorSpecs(in []config.MigratorSpec) []migrator.Spec {
	out := make([]migrator.Spec, 0, len(in))
	for _, m := range in {
		out = append(out, migrator.Spec{Key: m.Key, Kind: m.Kind, Params: m.Params})
	}
	return out
}

// specKeys extracts just the migrator keys from a resolved spec list,
// the shape prtracker.Run and reactor.New need (they don't construct
// Migrator instances, so there's no need to build the full registry).
func specKeys(specs []migrator.Spec) []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.Key)
	}
	return keys
}
