package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigratorsFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "migrators.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMigratorsFile(t *testing.T) {
	path := writeMigratorsFile(t, `
migrators:
  - key: bump-numpy
    kind: version_bump
    params:
      package: numpy
  - key: pin-openssl-3
    kind: pin_replace
    params:
      from: "1.1"
      to: "3.0"
`)

	doc, err := LoadMigratorsFile(path)
	require.NoError(t, err)
	require.Len(t, doc.Migrators, 2)
	assert.Equal(t, "version_bump", doc.Migrators[0].Kind)
}

func TestLoadMigratorsFile_MissingKey(t *testing.T) {
	path := writeMigratorsFile(t, `
migrators:
  - kind: version_bump
`)

	_, err := LoadMigratorsFile(path)
	assert.Error(t, err, "expected error for migrator entry missing key")
}

func TestLoadMigratorsFile_MissingFile(t *testing.T) {
	_, err := LoadMigratorsFile("/nonexistent/path.yaml")
	assert.Error(t, err, "expected error for missing file")
}
