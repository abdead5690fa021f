// Package discover implements gather-all-feedstocks (spec.md §6): list an
// organization's feedstock repositories via the Forge Gateway and ensure a
// stub Package record exists for each one, without clobbering a record
// that a later stage (make-graph, update-upstream-versions) has already
// enriched.
package discover

import (
	"context"
	"strings"

	"github.com/pkgforge/feedbot/internal/forge"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

const feedstockSuffix = "-feedstock"

// Result summarizes one gather-all-feedstocks run.
type Result struct {
	Discovered int
	Created    int
}

// Run lists org's repositories and, for every feedstock-suffixed one,
// creates a Package stub if none exists yet. Existing records, including
// their Archived flag, are left unchanged.
func Run(ctx context.Context, st *store.Store, gw forge.Gateway, org string) (*Result, error) {
	repos, err := gw.ListOrgRepos(ctx, org)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, repo := range repos {
		if !strings.HasSuffix(repo, feedstockSuffix) {
			continue
		}
		res.Discovered++
		pkgName := strings.TrimSuffix(repo, feedstockSuffix)

		err := st.WithWriteScope(ctx, store.Key(record.PackageKey(pkgName)), func(ctx context.Context) error {
			h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey(pkgName)))
			if err := h.Load(ctx); err != nil {
				return err
			}
			if !h.Loaded() {
				h.Value = record.Package{Name: pkgName, FeedstockName: repo}
				h.MarkDirty()
				res.Created++
			}
			_, err := h.Flush(ctx)
			return err
		})
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
