// Package graph builds and queries the dependency graph over package names
// (spec.md §4.2): a directed graph with edges package -> package it depends
// on, built from each package's build/host/run/test requirement sections,
// tolerant of cycles via Tarjan's strongly-connected-components algorithm.
package graph

import (
	"context"
	"encoding/json"
	"sort"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
	"github.com/pkgforge/feedbot/internal/util/sets"
)

// Node is one package vertex in the graph.
type Node struct {
	Name string
}

// Graph is an arena-indexed directed graph: nodes live in a flat slice and
// every reference between them is an index into that slice, not a pointer.
// This keeps the whole graph as one contiguous allocation and makes Tarjan
// and the condensation sort simple integer-array algorithms.
type Graph struct {
	nodes   []Node
	index   map[string]int // name -> index into nodes
	forward [][]int        // forward[i] = indices this node depends on
	back    [][]int        // back[i] = indices that depend on this node
}

// Successors returns the names this package directly depends on.
func (g *Graph) Successors(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.forward[i])
}

// Predecessors returns the names that directly depend on this package.
func (g *Graph) Predecessors(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.namesOf(g.back[i])
}

func (g *Graph) namesOf(idxs []int) []string {
	out := make([]string, len(idxs))
	for n, idx := range idxs {
		out[n] = g.nodes[idx].Name
	}
	return out
}

// Descendants returns every package reachable from name by following
// dependency edges (i.e. everything name transitively depends on), name
// excluded.
func (g *Graph) Descendants(name string) []string {
	start, ok := g.index[name]
	if !ok {
		return nil
	}
	seen := make(map[int]bool)
	var stack []int
	for _, n := range g.forward[start] {
		stack = append(stack, n)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		stack = append(stack, g.forward[i]...)
	}
	out := make([]string, 0, len(seen))
	for i := range seen {
		out = append(out, g.nodes[i].Name)
	}
	sort.Strings(out)
	return out
}

// Ancestors returns every package that transitively depends on name.
func (g *Graph) Ancestors(name string) []string {
	start, ok := g.index[name]
	if !ok {
		return nil
	}
	seen := make(map[int]bool)
	var stack []int
	stack = append(stack, g.back[start]...)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[i] {
			continue
		}
		seen[i] = true
		stack = append(stack, g.back[i]...)
	}
	out := make([]string, 0, len(seen))
	for i := range seen {
		out = append(out, g.nodes[i].Name)
	}
	sort.Strings(out)
	return out
}

// Names returns every node name in the graph, sorted.
func (g *Graph) Names() []string {
	out := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Name
	}
	sort.Strings(out)
	return out
}

// Has reports whether name is a node in the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Prune returns a new Graph containing only the nodes for which keep
// returns true, and the edges between them (edges touching a dropped node
// are dropped too).
func (g *Graph) Prune(keep func(name string) bool) *Graph {
	var names []string
	for _, n := range g.nodes {
		if keep(n.Name) {
			names = append(names, n.Name)
		}
	}
	keepSet := sets.New(names...)

	out := &Graph{index: make(map[string]int, len(names))}
	for _, name := range names {
		out.index[name] = len(out.nodes)
		out.nodes = append(out.nodes, Node{Name: name})
	}
	out.forward = make([][]int, len(out.nodes))
	out.back = make([][]int, len(out.nodes))

	for _, n := range g.nodes {
		if !keepSet.Has(n.Name) {
			continue
		}
		src := out.index[n.Name]
		for _, dstIdx := range g.forward[g.index[n.Name]] {
			dstName := g.nodes[dstIdx].Name
			if !keepSet.Has(dstName) {
				continue
			}
			dst := out.index[dstName]
			out.forward[src] = append(out.forward[src], dst)
			out.back[dst] = append(out.back[dst], src)
		}
	}
	return out
}

// requirementUnion returns the host requirement names (falling back to
// build requirements when host is empty), unioned with run and test
// requirements, per spec.md §4.2's construction rule.
func requirementUnion(req record.RequirementSections) []string {
	deps := req.Host
	if len(deps) == 0 {
		deps = req.Build
	}
	seen := make(sets.Set[string], len(deps)+len(req.Test))
	out := make([]string, 0, len(deps)+len(req.Test))
	for _, d := range deps {
		if !seen.Has(d) {
			seen.Add(d)
			out = append(out, d)
		}
	}
	for _, d := range req.Run {
		if !seen.Has(d) {
			seen.Add(d)
			out = append(out, d)
		}
	}
	for _, d := range req.Test {
		if !seen.Has(d) {
			seen.Add(d)
			out = append(out, d)
		}
	}
	return out
}

// Build constructs a Graph over names by loading each package's record from
// s and extracting its dependency edges. Self-loops are removed; edges to
// names outside the given set are dropped (spec.md §4.2).
func Build(ctx context.Context, s *store.Store, names []string) (*Graph, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	g := &Graph{index: make(map[string]int, len(sorted))}
	for _, name := range sorted {
		g.index[name] = len(g.nodes)
		g.nodes = append(g.nodes, Node{Name: name})
	}
	g.forward = make([][]int, len(g.nodes))
	g.back = make([][]int, len(g.nodes))

	for _, name := range sorted {
		raw, err := s.GetBytes(ctx, store.Key(record.PackageKey(name)))
		if err == store.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, ferrors.GraphError("failed to load package record").
				WithCause(err).
				WithContext("package", name).
				Build()
		}
		var pkg record.Package
		if err := json.Unmarshal(raw, &pkg); err != nil {
			return nil, ferrors.GraphError("corrupt package record").
				WithCause(err).
				WithContext("package", name).
				Build()
		}

		src := g.index[name]
		for _, dep := range requirementUnion(pkg.Requirements) {
			if dep == name {
				continue // self-loop removed
			}
			dst, ok := g.index[dep]
			if !ok {
				continue // edge to unknown node dropped
			}
			g.forward[src] = append(g.forward[src], dst)
			g.back[dst] = append(g.back[dst], src)
		}
	}
	return g, nil
}
