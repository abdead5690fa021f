package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

func seedPackageRecord(t *testing.T, st *store.Store, pkg record.Package) {
	t.Helper()
	h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey(pkg.Name)))
	h.Value = pkg
	h.MarkDirty()
	_, err := h.Flush(context.Background())
	require.NoError(t, err, "failed to seed package %s", pkg.Name)
}

func TestPersistAndLoadSummaryRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedPackageRecord(t, st, record.Package{Name: "a", Requirements: record.RequirementSections{Run: []string{"b"}}})
	seedPackageRecord(t, st, record.Package{Name: "b"})

	g, err := Build(ctx, st, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, Persist(ctx, st, g))

	summary, err := LoadSummary(ctx, st)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, []string{"b"}, summary.Nodes["a"])
}

func TestLoadSummaryWithoutPersistReturnsNil(t *testing.T) {
	st := newTestStore(t)
	summary, err := LoadSummary(context.Background(), st)
	require.NoError(t, err)
	assert.Nil(t, summary)
}
