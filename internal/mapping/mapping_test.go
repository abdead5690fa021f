package mapping

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

func seedPackage(t *testing.T, st *store.Store, pkg record.Package) {
	t.Helper()
	h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey(pkg.Name)))
	h.Value = pkg
	h.MarkDirty()
	_, err := h.Flush(context.Background())
	require.NoError(t, err, "failed to seed package %s", pkg.Name)
}

func TestBuildImportToPackageInvertsRunRequirements(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	seedPackage(t, st, record.Package{
		Name:          "numpy",
		FeedstockName: "numpy-feedstock",
		Requirements:  record.RequirementSections{Run: []string{"python"}},
	})
	seedPackage(t, st, record.Package{
		Name:          "scipy",
		FeedstockName: "scipy-feedstock",
		Requirements:  record.RequirementSections{Run: []string{"python", "numpy"}},
	})

	imports, err := BuildImportToPackage(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, []string{"numpy", "scipy"}, imports["python"])
}

func TestBuildFeedstockToPackage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedPackage(t, st, record.Package{Name: "numpy", FeedstockName: "numpy-feedstock"})

	feedstocks, err := BuildFeedstockToPackage(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, "numpy", feedstocks["numpy-feedstock"])
}

func TestPersistRoundTrips(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedPackage(t, st, record.Package{
		Name:          "numpy",
		FeedstockName: "numpy-feedstock",
		Requirements:  record.RequirementSections{Run: []string{"python"}},
	})

	imports, err := BuildImportToPackage(ctx, st)
	require.NoError(t, err)
	feedstocks, err := BuildFeedstockToPackage(ctx, st)
	require.NoError(t, err)
	require.NoError(t, Persist(ctx, st, imports, feedstocks))

	raw, err := st.GetBytes(ctx, store.Key(importToPackageKey))
	require.NoError(t, err)
	assert.NotEmpty(t, raw, "expected non-empty persisted import mapping")
}
