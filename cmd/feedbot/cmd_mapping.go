package main

import (
	"context"
	"log/slog"

	"github.com/pkgforge/feedbot/internal/config"
	"github.com/pkgforge/feedbot/internal/mapping"
)

// MakeImportToPackageMapCmd implements make-import-to-package-mapping.
type MakeImportToPackageMapCmd struct{}

func (c *MakeImportToPackageMapCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	imports, err := mapping.BuildImportToPackage(ctx, st)
	if err != nil {
		return err
	}
	feedstocks, err := mapping.BuildFeedstockToPackage(ctx, st)
	if err != nil {
		return err
	}
	if err := mapping.Persist(ctx, st, imports, feedstocks); err != nil {
		return err
	}
	slog.Info("rebuilt import-to-package mapping", "imports", len(imports))
	return nil
}

// MakeMappingsCmd implements make-mappings: the broader alias that
// refreshes every ecosystem mapping table (spec.md §6 lists both verbs;
// the import and feedstock tables are both rebuilt by
// make-import-to-package-mapping, so this delegates to it).
type MakeMappingsCmd struct{}

func (c *MakeMappingsCmd) Run(cli *CLI) error {
	return (&MakeImportToPackageMapCmd{}).Run(cli)
}
