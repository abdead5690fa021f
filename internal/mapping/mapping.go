// Package mapping rebuilds the Python-import-name-to-ecosystem-package
// lookup tables spec.md §6's make-import-to-package-mapping and
// make-mappings commands refresh. It has no dedicated record type of its
// own: the tables are derived entirely from existing Package records, so
// they are recomputed rather than incrementally maintained.
package mapping

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

const (
	importToPackageKey = "mapping:import_to_package"
	feedstockToPackageKey = "mapping:feedstock_to_package"
)

// ImportToPackage maps a Python import name (taken from the run
// requirements a package declares) to the set of ecosystem package names
// that provide it. Several packages can legitimately provide the same
// import (namespace packages, forks), hence the slice value.
type ImportToPackage map[string][]string

// FeedstockToPackage maps a feedstock repository name to the one package
// name it builds.
type FeedstockToPackage map[string]string

// BuildImportToPackage scans every known Package record and inverts its
// run requirements into an import-name index.
func BuildImportToPackage(ctx context.Context, st *store.Store) (ImportToPackage, error) {
	keys, err := st.KeysPrefix(ctx, "package:")
	if err != nil {
		return nil, err
	}

	out := make(ImportToPackage)
	for _, key := range keys {
		h := store.NewLazyHandle[record.Package](st, key)
		if err := h.Load(ctx); err != nil {
			continue
		}
		if !h.Loaded() {
			continue
		}
		for _, imp := range h.Value.Requirements.Run {
			out[imp] = appendSorted(out[imp], h.Value.Name)
		}
	}
	return out, nil
}

// BuildFeedstockToPackage scans every known Package record and collects
// the feedstock-to-package reverse lookup.
func BuildFeedstockToPackage(ctx context.Context, st *store.Store) (FeedstockToPackage, error) {
	keys, err := st.KeysPrefix(ctx, "package:")
	if err != nil {
		return nil, err
	}

	out := make(FeedstockToPackage)
	for _, key := range keys {
		h := store.NewLazyHandle[record.Package](st, key)
		if err := h.Load(ctx); err != nil {
			continue
		}
		if !h.Loaded() {
			continue
		}
		out[h.Value.FeedstockName] = h.Value.Name
	}
	return out, nil
}

// Persist writes both mapping tables into the store as plain JSON blobs
// under fixed keys, readable with store.Store.GetBytes without a dedicated
// record type. Nothing else in feedbot reads them back.
func Persist(ctx context.Context, st *store.Store, imports ImportToPackage, feedstocks FeedstockToPackage) error {
	importBytes, err := json.Marshal(imports)
	if err != nil {
		return err
	}
	if _, err := st.PutBytes(ctx, store.Key(importToPackageKey), importBytes); err != nil {
		return err
	}

	feedstockBytes, err := json.Marshal(feedstocks)
	if err != nil {
		return err
	}
	_, err = st.PutBytes(ctx, store.Key(feedstockToPackageKey), feedstockBytes)
	return err
}

func appendSorted(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	names = append(names, name)
	sort.Strings(names)
	return names
}
