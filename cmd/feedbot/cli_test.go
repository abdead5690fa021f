package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/forge"
)

// testCLI returns a CLI configured for fully offline operation: a fresh
// file-backed store rooted in a temp directory and a fake forge gateway,
// the same shape docbuilder's MockCLIEnvironment sets up for its own
// subcommand tests.
func testCLI(t *testing.T) *CLI {
	t.Helper()
	root := t.TempDir()
	t.Setenv("STORE_DIR", root)
	t.Setenv("GRAPH_BACKENDS", "file")
	t.Setenv("FORGE_TOKEN", "test-token")
	t.Setenv("ORG", "pkgforge")
	return &CLI{DryRun: true}
}

func TestGatherAllFeedstocksCmdRunsOnEmptyOrg(t *testing.T) {
	cli := testCLI(t)

	cmd := &GatherAllFeedstocksCmd{}
	require.NoError(t, cmd.Run(cli))
}

func TestMakeGraphCmdRunsOnEmptyStore(t *testing.T) {
	cli := testCLI(t)

	cmd := &MakeGraphCmd{UpdateNodesAndEdges: true}
	require.NoError(t, cmd.Run(cli))
}

func TestUpdateUpstreamVersionsCmdRunsOnEmptyStore(t *testing.T) {
	cli := testCLI(t)

	cmd := &UpdateUpstreamVersionsCmd{NJobs: 1}
	require.NoError(t, cmd.Run(cli))
}

func TestUpdatePRsCmdRunsWithNoMigrators(t *testing.T) {
	cli := testCLI(t)

	cmd := &UpdatePRsCmd{NJobs: 1}
	require.NoError(t, cmd.Run(cli))
}

func TestMakeStatusReportCmdPrintsJSON(t *testing.T) {
	cli := testCLI(t)

	cmd := &MakeStatusReportCmd{}
	require.NoError(t, cmd.Run(cli))
}

func TestDeployToGithubCmdSkipsUnderDryRun(t *testing.T) {
	cli := testCLI(t)

	cmd := &DeployToGithubCmd{}
	require.NoError(t, cmd.Run(cli), "expected dry-run deploy to no-op")
}

func TestBuildGatewayHonorsDryRun(t *testing.T) {
	cli := &CLI{DryRun: true}
	gw := buildGateway(cli, nil)
	_, ok := gw.(*forge.FakeGateway)
	assert.True(t, ok, "expected FakeGateway under --dry-run, got %T", gw)
}
