package prtracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/forge"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	fb, err := store.NewFileBackend(t.TempDir(), 2)
	require.NoError(t, err)
	return store.New([]store.Backend{fb})
}

func seedPackage(t *testing.T, st *store.Store, name, feedstock string) {
	t.Helper()
	h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey(name)))
	h.Value = record.Package{Name: name, FeedstockName: feedstock}
	h.MarkDirty()
	_, err := h.Flush(context.Background())
	require.NoError(t, err, "failed to seed package")
}

func seedPRInfo(t *testing.T, st *store.Store, migratorKey, pkgName string, fps ...record.PRFingerprint) {
	t.Helper()
	h := store.NewLazyHandle[record.PRInfo](st, store.Key(record.PRInfoKey(migratorKey, pkgName)))
	h.Value = record.PRInfo{Fingerprints: fps}
	h.MarkDirty()
	_, err := h.Flush(context.Background())
	require.NoError(t, err, "failed to seed pr-info")
}

func TestTrackerPropagatesMergedState(t *testing.T) {
	st := newTestStore(t)
	gw := forge.NewFakeGateway()
	ctx := context.Background()

	seedPackage(t, st, "foo", "foo-feedstock")
	pr, err := gw.OpenPR(ctx, "foo-feedstock", &forge.WorkingTree{Branch: "version-1.0.1"}, "bump foo", "body")
	require.NoError(t, err)
	gw.SetPRState(pr.Number, "merged")

	seedPRInfo(t, st, "version", "foo", record.PRFingerprint{
		MigratorFingerprint: "abc123",
		PRState:             record.PRStateInPR,
		PRNumber:            pr.Number,
	})

	tr := New(st, gw)
	res, err := tr.Run(ctx, []string{"version"}, Shard{K: 0, N: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	h := store.NewLazyHandle[record.PRInfo](st, store.Key(record.PRInfoKey("version", "foo")))
	require.NoError(t, h.Load(ctx))
	assert.Equal(t, record.PRStateDone, h.Value.Fingerprints[0].PRState)
}

func TestTrackerSkipsTerminalEntries(t *testing.T) {
	st := newTestStore(t)
	gw := forge.NewFakeGateway()
	ctx := context.Background()

	seedPackage(t, st, "foo", "foo-feedstock")
	seedPRInfo(t, st, "version", "foo", record.PRFingerprint{
		MigratorFingerprint: "abc123",
		PRState:             record.PRStateDone,
		PRNumber:            1,
	})

	tr := New(st, gw)
	res, err := tr.Run(ctx, []string{"version"}, Shard{K: 0, N: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Checked, "terminal entries must be skipped")
}

func TestTrackerRespectsShard(t *testing.T) {
	st := newTestStore(t)
	gw := forge.NewFakeGateway()
	ctx := context.Background()

	seedPackage(t, st, "foo", "foo-feedstock")
	pr, err := gw.OpenPR(ctx, "foo-feedstock", &forge.WorkingTree{Branch: "version-1.0.1"}, "bump foo", "body")
	require.NoError(t, err)
	gw.SetPRState(pr.Number, "merged")
	seedPRInfo(t, st, "version", "foo", record.PRFingerprint{
		MigratorFingerprint: "abc123",
		PRState:             record.PRStateInPR,
		PRNumber:            pr.Number,
	})

	// A shard that does not own "foo" must not touch it.
	var other Shard
	for k := 0; k < 4; k++ {
		s := Shard{K: k, N: 4}
		if !s.owns("foo") {
			other = s
			break
		}
	}

	tr := New(st, gw)
	_, err = tr.Run(ctx, []string{"version"}, other)
	require.NoError(t, err)

	h := store.NewLazyHandle[record.PRInfo](st, store.Key(record.PRInfoKey("version", "foo")))
	require.NoError(t, h.Load(ctx))
	assert.Equal(t, record.PRStateInPR, h.Value.Fingerprints[0].PRState, "shard should not own this package")
}
