package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	fb, err := store.NewFileBackend(t.TempDir(), 2)
	require.NoError(t, err)
	return store.New([]store.Backend{fb})
}

func TestSweepSkipsUnrecognizedSourceWithoutMarkingBad(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey("foo")))
	h.Value = record.Package{Name: "foo", SourceHint: "ftp://old.example.org/pkg"}
	h.MarkDirty()
	_, err := h.Flush(ctx)
	require.NoError(t, err)

	res, err := Sweep(ctx, st, NewDispatcher(5, false), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, 0, res.Bad)

	vh := store.NewLazyHandle[record.Version](st, store.Key(record.VersionKey("foo")))
	require.NoError(t, vh.Load(ctx))
	if vh.Loaded() {
		assert.Nil(t, vh.Value.Bad, "expected no bad state for an unrecognized source")
	}
}

func TestSweepRespectsShard(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey("foo")))
	h.Value = record.Package{Name: "foo"}
	h.MarkDirty()
	_, err := h.Flush(ctx)
	require.NoError(t, err)

	var shard int
	for k := 0; k < 4; k++ {
		if !OwnedByShard("foo", k, 4) {
			shard = k
			break
		}
	}

	res, err := Sweep(ctx, st, NewDispatcher(5, false), shard, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Checked, "package not owned by this shard")
}
