// Package prtracker implements the PR Tracker (spec.md §4.7): walk every
// non-terminal PR fingerprint across all packages, fetch its current state
// from the forge, mirror it into a PR-JSON record, and on merge/close
// propagate the outcome back into the owning PR-info entry.
package prtracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkgforge/feedbot/internal/forge"
	"github.com/pkgforge/feedbot/internal/logfields"
	"github.com/pkgforge/feedbot/internal/probe"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

// Shard selects a disjoint, deterministic subset of packages so that N
// tracker processes can run concurrently with no coordination beyond the
// store's per-key lock (spec.md §4.7's "stable hashing of the package
// name"). It reuses the Upstream Probes' shard-ownership function rather
// than re-deriving the same hash-mod-N rule.
type Shard struct {
	K, N int
}

// owns reports whether name belongs to this shard.
func (s Shard) owns(name string) bool {
	return probe.OwnedByShard(name, s.K, s.N)
}

// Tracker drives spec.md §4.7 across every (migratorKey, package) PR-info
// record in the store.
type Tracker struct {
	Store   *store.Store
	Gateway forge.Gateway
}

// New builds a Tracker.
func New(st *store.Store, gw forge.Gateway) *Tracker {
	return &Tracker{Store: st, Gateway: gw}
}

// Result summarizes one tracker run, for logs and tests.
type Result struct {
	Checked int
	Updated int
	Errors  int
}

// Run walks every pr_info:* key owned by shard, re-fetches PR state for any
// non-terminal fingerprint, and propagates merged/closed outcomes.
func (t *Tracker) Run(ctx context.Context, migratorKeys []string, shard Shard) (*Result, error) {
	res := &Result{}
	for _, migratorKey := range migratorKeys {
		prefix := "pr_info:" + migratorKey + ":"
		keys, err := t.Store.KeysPrefix(ctx, prefix)
		if err != nil {
			return res, err
		}
		for _, key := range keys {
			pkgName := packageNameFromKey(string(key), prefix)
			if pkgName == "" || !shard.owns(pkgName) {
				continue
			}
			if err := t.trackOne(ctx, migratorKey, pkgName, res); err != nil {
				slog.Warn("pr tracker failed for package", logfields.Package(pkgName), logfields.MigratorKey(migratorKey), logfields.Error(err))
				res.Errors++
			}
		}
	}
	return res, nil
}

func packageNameFromKey(key, prefix string) string {
	if len(key) <= len(prefix) {
		return ""
	}
	return key[len(prefix):]
}

// trackOne re-fetches forge state for every non-terminal fingerprint of one
// package's PR-info record, under that package's write scope.
func (t *Tracker) trackOne(ctx context.Context, migratorKey, pkgName string, res *Result) error {
	return t.Store.WithWriteScope(ctx, store.Key(record.PackageKey(pkgName)), func(ctx context.Context) error {
		pkgHandle := store.NewLazyHandle[record.Package](t.Store, store.Key(record.PackageKey(pkgName)))
		if err := pkgHandle.Load(ctx); err != nil {
			return err
		}
		if !pkgHandle.Loaded() {
			return nil
		}

		prInfo := store.NewLazyHandle[record.PRInfo](t.Store, store.Key(record.PRInfoKey(migratorKey, pkgName)))
		if err := prInfo.Load(ctx); err != nil {
			return err
		}

		dirty := false
		for i := range prInfo.Value.Fingerprints {
			fp := &prInfo.Value.Fingerprints[i]
			if isTerminal(fp.PRState) || fp.PRNumber == 0 {
				continue
			}
			res.Checked++

			pr, err := t.Gateway.GetPR(ctx, pkgHandle.Value.FeedstockName, fp.PRNumber)
			if err != nil {
				return err
			}

			if err := t.mirrorPRJSON(ctx, pr); err != nil {
				return err
			}

			newState, closedAt := classify(pr)
			if newState != fp.PRState {
				fp.PRState = newState
				fp.ClosedAt = closedAt
				dirty = true
				res.Updated++
			}
		}

		if dirty {
			prInfo.MarkDirty()
			if _, err := prInfo.Flush(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// mirrorPRJSON updates the PR-JSON record with the forge's current view of
// the pull request (spec.md §3's PR-JSON shape).
func (t *Tracker) mirrorPRJSON(ctx context.Context, pr *forge.PR) error {
	h := store.NewLazyHandle[record.PRJSON](t.Store, store.Key(record.PRJSONKey(pr.ID)))
	if err := h.Load(ctx); err != nil {
		return err
	}
	h.Value.ID = pr.ID
	h.Value.Number = pr.Number
	h.Value.State = pr.State
	h.Value.HTMLURL = pr.HTMLURL
	if pr.State == "merged" {
		now := time.Now()
		h.Value.Merged = true
		h.Value.MergedAt = &now
	} else if pr.State == "closed" {
		now := time.Now()
		h.Value.ClosedAt = &now
	}
	h.MarkDirty()
	_, err := h.Flush(ctx)
	return err
}

// classify maps a forge PR's raw state string to a PRState, following
// spec.md §4.7's "closed-merged or closed-unmerged" distinction.
func classify(pr *forge.PR) (record.PRState, *time.Time) {
	switch pr.State {
	case "merged":
		return record.PRStateDone, nil
	case "closed":
		now := time.Now()
		return record.PRStateClosed, &now
	default:
		return record.PRStateInPR, nil
	}
}

func isTerminal(s record.PRState) bool {
	return s == record.PRStateDone || s == record.PRStateBotError
}
