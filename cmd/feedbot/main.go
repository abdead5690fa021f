// Command feedbot runs the automated migration robot spec.md describes:
// discover feedstocks, build the dependency graph, probe upstream
// versions, and drive the Migration Scheduler and PR Tracker across a
// large package ecosystem, all state round-tripped through the Graph
// Store's pluggable file/mirror/database backends.
//
// The verb surface is a flat, Kong-based CLI (one struct field per
// subcommand), grounded on docbuilder's cmd/docbuilder/main.go: a single
// CLI struct, an AfterApply that wires up logging once, and a main()
// that delegates error presentation to foundation/errors.CLIErrorAdapter
// so every subcommand shares the same exit-code contract.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

// CLI is the top-level command tree. Global flags apply to every
// subcommand (spec.md §6).
type CLI struct {
	Debug        bool   `short:"v" help:"Single-threaded, verbose logging."`
	Online       bool   `help:"Fetch the graph from the mirror backend rather than the local file backend."`
	NoContainers bool   `name:"no-containers" help:"Disable sandboxed execution of external helpers."`
	DryRun       bool   `name:"dry-run" help:"Use an in-memory fake forge gateway; never write to a real forge."`
	MigratorsCfg string `name:"migrators-config" help:"Path to the migrator registration YAML file." default:"migrators.yaml"`

	GatherAllFeedstocks      GatherAllFeedstocksCmd      `cmd:"" name:"gather-all-feedstocks" help:"Refresh the known-feedstock list."`
	MakeGraph                MakeGraphCmd                `cmd:"" name:"make-graph" help:"Build/refresh the dependency graph."`
	UpdateUpstreamVersions   UpdateUpstreamVersionsCmd   `cmd:"" name:"update-upstream-versions" help:"Run upstream probes, sharded by node hash."`
	MakeMigrators            MakeMigratorsCmd            `cmd:"" name:"make-migrators" help:"Initialize migrator objects from configuration."`
	AutoTick                 AutoTickCmd                 `cmd:"" name:"auto-tick" help:"Run the Migration Scheduler across all migrators until budget exhausted."`
	UpdatePRs                UpdatePRsCmd                `cmd:"" name:"update-prs" help:"Run the PR Tracker, sharded."`
	MakeStatusReport         MakeStatusReportCmd         `cmd:"" name:"make-status-report" help:"Emit the status report."`
	ReactToEvent             ReactToEventCmd             `cmd:"" name:"react-to-event" help:"React to a single external (event, uid) trigger."`
	SyncLazyJSON             SyncLazyJSONCmd             `cmd:"" name:"sync-lazy-json-across-backends" help:"Force bidirectional reconciliation of all keys across configured backends."`
	DeployToGithub           DeployToGithubCmd           `cmd:"" name:"deploy-to-github" help:"Commit and push the mutated graph store."`
	MakeImportToPackageMap   MakeImportToPackageMapCmd   `cmd:"" name:"make-import-to-package-mapping" help:"Rebuild the Python-import-to-package mapping table."`
	MakeMappings             MakeMappingsCmd             `cmd:"" name:"make-mappings" help:"Rebuild all ecosystem mapping tables."`
	Daemon                   DaemonCmd                   `cmd:"" name:"daemon" help:"Run a gocron-scheduled fleet of the above subcommands continuously."`
}

// AfterApply wires up slog once, ahead of every subcommand's Run.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func main() {
	cli := &CLI{}
	parser := kong.Parse(cli, kong.Description("feedbot: an automated dependency-migration robot for a large package ecosystem."))

	errorAdapter := ferrors.NewCLIErrorAdapter(cli.Debug, slog.Default())
	if err := parser.Run(cli); err != nil {
		errorAdapter.HandleError(err)
	}
}
