package migrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/record"
)

func TestFingerprint_DeterministicRegardlessOfKeyOrder(t *testing.T) {
	a := map[string]any{"migrator": "version_bump", "package": "numpy", "version": "1.2.3"}
	b := map[string]any{"version": "1.2.3", "package": "numpy", "migrator": "version_bump"}

	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fpA, fpB, "fingerprints should match for same logical content")
}

func TestFingerprint_DiffersOnContentChange(t *testing.T) {
	a := map[string]any{"package": "numpy", "version": "1.2.3"}
	b := map[string]any{"package": "numpy", "version": "1.2.4"}
	fpA, err := Fingerprint(a)
	require.NoError(t, err)
	fpB, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB, "expected different fingerprints for different versions")
}

func writeTestRecipe(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, recipeFileName), []byte(content), 0o644))
}

func TestVersionBump_MigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeTestRecipe(t, dir, "source:\n  version: \"1.0.0\"\n  sha256: \"old\"\nbuild:\n  number: 3\n")

	m := NewVersionBump("version_bump").WithTarget("1.1.0", "newhash", "sha256")
	pkg := &record.Package{Name: "numpy", CurrentVersion: "1.0.0"}

	fp1, err := m.Migrate(context.Background(), dir, pkg)
	require.NoError(t, err)
	fp2, err := m.Migrate(context.Background(), dir, pkg)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2, "expected idempotent fingerprint")

	fields, err := readRecipe(dir)
	require.NoError(t, err)
	source := fields["source"].(map[string]any)
	assert.Equal(t, "1.1.0", source["version"])
	assert.Equal(t, "newhash", source["sha256"])
	build := fields["build"].(map[string]any)
	assert.Equal(t, 0, build["number"], "build number should reset to 0")
}

func TestVersionBump_FilterSkipsWithoutTarget(t *testing.T) {
	m := NewVersionBump("version_bump")
	assert.True(t, m.Filter(&record.Package{Name: "numpy"}), "expected Filter to skip a migrator with no target version set")
}

func TestPinReplace_RemovesDependency(t *testing.T) {
	dir := t.TempDir()
	writeTestRecipe(t, dir, "requirements:\n  run:\n    - python\n    - six\n")

	m := NewPinReplace("drop_six", "six", "", "")
	pkg := &record.Package{Name: "example", Requirements: record.RequirementSections{Run: []string{"six"}}}

	require.False(t, m.Filter(pkg), "expected Filter=false when the package depends on the target")

	_, err := m.Migrate(context.Background(), dir, pkg)
	require.NoError(t, err)

	fields, err := readRecipe(dir)
	require.NoError(t, err)
	requirements := fields["requirements"].(map[string]any)
	run := toStringSlice(requirements["run"])
	assert.NotContains(t, run, "six")
}
