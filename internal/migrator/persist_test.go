package migrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	fb, err := store.NewFileBackend(t.TempDir(), 2)
	require.NoError(t, err)
	return store.New([]store.Backend{fb})
}

func TestPersistSpecsRoundTripsInKeyOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	specs := []Spec{
		{Key: "zzz-version", Kind: "version_bump"},
		{Key: "aaa-version", Kind: "version_bump"},
	}
	require.NoError(t, PersistSpecs(ctx, st, specs))

	got, err := LoadPersistedSpecs(ctx, st)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "aaa-version", got[0].Key)
	require.Equal(t, "zzz-version", got[1].Key)
}
