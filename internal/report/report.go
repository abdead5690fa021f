// Package report implements the Status Reporter (spec.md §4.9): for every
// (migrator, package) pair, classify its current lifecycle state and
// serialize the result deterministically.
package report

import (
	"context"
	"sort"

	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/migrator"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

// NodeStatus is the classification spec.md §4.9 assigns to one
// (migrator, package) pair.
type NodeStatus string

const (
	StatusDone            NodeStatus = "done"
	StatusInPR            NodeStatus = "in-pr"
	StatusAwaitingPR      NodeStatus = "awaiting-pr"
	StatusAwaitingParents NodeStatus = "awaiting-parents"
	StatusBotError        NodeStatus = "bot-error"
)

// NodeReport is one (migrator, package) entry in the status report. Field
// order and JSON tags are fixed so repeated runs with unchanged state
// produce byte-identical output.
type NodeReport struct {
	Package           string     `json:"package"`
	MigratorKey       string     `json:"migrator_key"`
	Status            NodeStatus `json:"status"`
	NumDescendants    int        `json:"num_descendants"`
	ImmediateChildren []string   `json:"immediate_children"`
	PRURL             string     `json:"pr_url,omitempty"`
	BadReason         string     `json:"bad_reason,omitempty"`
	CorruptKey        string     `json:"corrupt_key,omitempty"`
}

// Report is the full status report: a flat, sorted slice rather than a
// map, so JSON serialization is deterministic without relying on Go's
// (also deterministic, but implementation-defined) map-key sort.
type Report struct {
	Nodes       []NodeReport `json:"nodes"`
	CorruptKeys []string     `json:"corrupt_keys,omitempty"`
}

// Reporter generates status reports against a store and dependency graph.
type Reporter struct {
	Store *store.Store
}

// New builds a Reporter.
func New(st *store.Store) *Reporter {
	return &Reporter{Store: st}
}

// Generate classifies every (migrator, package) pair in g into one of the
// five states and computes each node's graph-shape metrics.
func (r *Reporter) Generate(ctx context.Context, g *graph.Graph, migrators []migrator.Migrator) (*Report, error) {
	rep := &Report{}
	names := g.Names()

	for _, m := range migrators {
		for _, name := range names {
			nr, corruptKey, err := r.classify(ctx, g, m, name)
			if err != nil {
				return nil, err
			}
			if corruptKey != "" {
				rep.CorruptKeys = append(rep.CorruptKeys, corruptKey)
			}
			rep.Nodes = append(rep.Nodes, *nr)
		}
	}

	sort.Slice(rep.Nodes, func(i, j int) bool {
		if rep.Nodes[i].MigratorKey != rep.Nodes[j].MigratorKey {
			return rep.Nodes[i].MigratorKey < rep.Nodes[j].MigratorKey
		}
		return rep.Nodes[i].Package < rep.Nodes[j].Package
	})
	sort.Strings(rep.CorruptKeys)
	return rep, nil
}

func (r *Reporter) classify(ctx context.Context, g *graph.Graph, m migrator.Migrator, name string) (*NodeReport, string, error) {
	children := g.Successors(name)
	sort.Strings(children)
	nr := &NodeReport{
		Package:           name,
		MigratorKey:       m.Key(),
		NumDescendants:    len(g.Descendants(name)),
		ImmediateChildren: children,
	}

	pkgHandle := store.NewLazyHandle[record.Package](r.Store, store.Key(record.PackageKey(name)))
	if err := pkgHandle.Load(ctx); err != nil {
		return nr, string(record.PackageKey(name)), nil
	}

	if pkgHandle.Loaded() && pkgHandle.Value.Bad != nil {
		nr.Status = StatusBotError
		nr.BadReason = pkgHandle.Value.Bad.Reason
		return nr, "", nil
	}

	prInfoHandle := store.NewLazyHandle[record.PRInfo](r.Store, store.Key(record.PRInfoKey(m.Key(), name)))
	if err := prInfoHandle.Load(ctx); err != nil {
		return nr, string(record.PRInfoKey(m.Key(), name)), nil
	}

	if prInfoHandle.Value.Bad != nil {
		nr.Status = StatusBotError
		nr.BadReason = prInfoHandle.Value.Bad.Reason
		return nr, "", nil
	}

	latest := latestFingerprint(prInfoHandle.Value.Fingerprints)
	if latest == nil {
		if hasUnlandedParent(ctx, r.Store, g, m.Key(), name) {
			nr.Status = StatusAwaitingParents
		} else {
			nr.Status = StatusAwaitingPR
		}
		return nr, "", nil
	}

	switch latest.PRState {
	case record.PRStateDone:
		nr.Status = StatusDone
	case record.PRStateBotError:
		nr.Status = StatusBotError
	case record.PRStateInPR, record.PRStateClosed:
		nr.Status = StatusInPR
		nr.PRURL = latest.PRURL
	default: // awaiting_pr, awaiting_parents
		if hasUnlandedParent(ctx, r.Store, g, m.Key(), name) {
			nr.Status = StatusAwaitingParents
		} else {
			nr.Status = StatusAwaitingPR
		}
	}
	return nr, "", nil
}

func latestFingerprint(fps []record.PRFingerprint) *record.PRFingerprint {
	if len(fps) == 0 {
		return nil
	}
	latest := &fps[0]
	for i := 1; i < len(fps); i++ {
		if fps[i].Timestamp.After(latest.Timestamp) {
			latest = &fps[i]
		}
	}
	return latest
}

func hasUnlandedParent(ctx context.Context, st *store.Store, g *graph.Graph, migratorKey, name string) bool {
	for _, parent := range g.Predecessors(name) {
		h := store.NewLazyHandle[record.PRInfo](st, store.Key(record.PRInfoKey(migratorKey, parent)))
		if err := h.Load(ctx); err != nil {
			continue
		}
		landed := false
		for _, fp := range h.Value.Fingerprints {
			if fp.PRState == record.PRStateDone {
				landed = true
				break
			}
		}
		if !landed {
			return true
		}
	}
	return false
}
