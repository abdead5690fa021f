package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendPutGetExists(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir, 2)
	require.NoError(t, err)

	ctx := context.Background()
	key := Key("package:numpy")
	data := []byte(`{"name":"numpy"}`)

	exists, _ := fb.Exists(ctx, key)
	assert.False(t, exists, "expected key to not exist before Put")

	require.NoError(t, fb.PutBytes(ctx, key, data))

	exists, err = fb.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists, "expected key to exist after Put")

	got, err := fb.GetBytes(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFileBackendGetMissing(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir, 2)
	require.NoError(t, err)

	_, err = fb.GetBytes(context.Background(), Key("package:missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestFileBackendDelete(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir, 2)
	require.NoError(t, err)
	ctx := context.Background()
	key := Key("package:numpy")

	require.NoError(t, fb.PutBytes(ctx, key, []byte("{}")))
	require.NoError(t, fb.Delete(ctx, key))
	exists, _ := fb.Exists(ctx, key)
	assert.False(t, exists, "expected key to be gone after Delete")
	// deleting again is not an error
	assert.NoError(t, fb.Delete(ctx, key), "Delete of missing key should be nil")
}

func TestFileBackendKeysPrefix(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir, 2)
	require.NoError(t, err)
	ctx := context.Background()

	keys := []Key{"package_numpy", "package_scipy", "versions_numpy"}
	for _, k := range keys {
		require.NoError(t, fb.PutBytes(ctx, k, []byte("{}")), "PutBytes(%s)", k)
	}

	got, err := fb.KeysPrefix(ctx, "package_")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestShardedPathDepth(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir, 3)
	require.NoError(t, err)
	path := fb.shardedPath("package:numpy")
	assert.NotEmpty(t, path, "expected non-empty sharded path")
}
