package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/migrator"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	fb, err := store.NewFileBackend(t.TempDir(), 2)
	require.NoError(t, err)
	return store.New([]store.Backend{fb})
}

func seedPackage(t *testing.T, st *store.Store, pkg record.Package) {
	t.Helper()
	h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey(pkg.Name)))
	h.Value = pkg
	h.MarkDirty()
	_, err := h.Flush(context.Background())
	require.NoError(t, err, "failed to seed package %s", pkg.Name)
}

func TestGenerateClassifiesAwaitingPRWhenNoHistory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedPackage(t, st, record.Package{Name: "foo", FeedstockName: "foo-feedstock"})

	g, err := graph.Build(ctx, st, []string{"foo"})
	require.NoError(t, err)

	r := New(st)
	rep, err := r.Generate(ctx, g, []migrator.Migrator{migrator.NewVersionBump("version")})
	require.NoError(t, err)
	require.Len(t, rep.Nodes, 1)
	assert.Equal(t, StatusAwaitingPR, rep.Nodes[0].Status)
}

func TestGenerateClassifiesBotError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedPackage(t, st, record.Package{
		Name:          "foo",
		FeedstockName: "foo-feedstock",
		Bad:           &record.BadState{Kind: "migrate", Reason: "parse error"},
	})

	g, err := graph.Build(ctx, st, []string{"foo"})
	require.NoError(t, err)

	r := New(st)
	rep, err := r.Generate(ctx, g, []migrator.Migrator{migrator.NewVersionBump("version")})
	require.NoError(t, err)
	assert.Equal(t, StatusBotError, rep.Nodes[0].Status)
	assert.Equal(t, "parse error", rep.Nodes[0].BadReason)
}

func TestGenerateIsDeterministicAcrossRuns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedPackage(t, st, record.Package{Name: "a", FeedstockName: "a-feedstock"})
	seedPackage(t, st, record.Package{Name: "b", FeedstockName: "b-feedstock"})

	g, err := graph.Build(ctx, st, []string{"a", "b"})
	require.NoError(t, err)

	r := New(st)
	migrators := []migrator.Migrator{migrator.NewVersionBump("version")}

	first, err := r.Generate(ctx, g, migrators)
	require.NoError(t, err)
	second, err := r.Generate(ctx, g, migrators)
	require.NoError(t, err)

	require.Len(t, second.Nodes, len(first.Nodes))
	for i := range first.Nodes {
		assert.Equal(t, first.Nodes[i], second.Nodes[i], "node %d should be identical across runs", i)
	}
}
