package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EphemeralMode(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase)

	require.NoError(t, mgr.Create())

	wsPath := mgr.GetPath()
	assert.NotEmpty(t, wsPath, "GetPath() returned empty string")
	assert.Contains(t, filepath.Base(wsPath), "feedbot-", "expected timestamped directory")
	_, err := os.Stat(wsPath)
	assert.False(t, os.IsNotExist(err), "workspace directory does not exist: %s", wsPath)

	require.NoError(t, mgr.Cleanup())
	_, err = os.Stat(wsPath)
	assert.True(t, os.IsNotExist(err), "workspace directory still exists after cleanup: %s", wsPath)
}

func TestManager_PersistentMode(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewPersistentManager(tempBase, "working")

	require.NoError(t, mgr.Create())

	wsPath := mgr.GetPath()
	expectedPath := filepath.Join(tempBase, "working")
	assert.Equal(t, expectedPath, wsPath)

	markerFile := filepath.Join(wsPath, "marker.txt")
	require.NoError(t, os.WriteFile(markerFile, []byte("persistent"), 0o600))

	require.NoError(t, mgr.Cleanup())
	_, err := os.Stat(markerFile)
	assert.False(t, os.IsNotExist(err), "marker file was removed from persistent workspace")
}

func TestManager_DefaultSubdirName(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewPersistentManager(tempBase, "")

	require.NoError(t, mgr.Create())

	expectedPath := filepath.Join(tempBase, "working")
	assert.Equal(t, expectedPath, mgr.GetPath())
}

func TestEmptyRootCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist-yet")
	require.NoError(t, EmptyRoot(root))
	_, err := os.Stat(root)
	assert.NoError(t, err, "expected root to be created")
}

func TestEmptyRootRemovesExistingContents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "leftover.txt"), []byte("stale"), 0o600), "seed leftover file")
	require.NoError(t, os.Mkdir(filepath.Join(root, "subdir"), 0o750), "seed leftover subdir")

	require.NoError(t, EmptyRoot(root))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "expected empty root after EmptyRoot")
}
