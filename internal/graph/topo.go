package graph

import "sort"

// condensation is the DAG of strongly-connected components: comp[i] lists
// the graph node indices belonging to component i, and forward[i] holds
// the component indices i depends on (edges between members of different
// components, deduplicated, intra-component edges dropped).
type condensation struct {
	comp    [][]int
	forward [][]int
	back    [][]int
}

func (g *Graph) condense() condensation {
	sccs := g.tarjan()
	owner := make([]int, len(g.nodes)) // node index -> component index
	for ci, scc := range sccs {
		for _, ni := range scc.Nodes {
			owner[ni] = ci
		}
	}

	c := condensation{
		comp:    make([][]int, len(sccs)),
		forward: make([][]int, len(sccs)),
		back:    make([][]int, len(sccs)),
	}
	for ci, scc := range sccs {
		c.comp[ci] = scc.Nodes
	}

	seen := make(map[[2]int]bool)
	for ni := range g.nodes {
		srcComp := owner[ni]
		for _, dst := range g.forward[ni] {
			dstComp := owner[dst]
			if dstComp == srcComp {
				continue
			}
			key := [2]int{srcComp, dstComp}
			if seen[key] {
				continue
			}
			seen[key] = true
			c.forward[srcComp] = append(c.forward[srcComp], dstComp)
			c.back[dstComp] = append(c.back[dstComp], srcComp)
		}
	}
	return c
}

// CyclicTopologicalSort orders names such that every package appears after
// everything it (transitively, acyclically) depends on. Packages involved
// in a dependency cycle are treated as a single unit — the members of a
// strongly-connected component are kept contiguous in the output, ordered
// lexicographically within the component — so a cycle can never split
// across the sort. Ties between independent components are broken
// lexicographically by each component's smallest member name. If names is
// non-empty, the sort is restricted to (and edges pruned to) that subset.
func (g *Graph) CyclicTopologicalSort(names []string) []string {
	target := g
	if len(names) > 0 {
		keep := make(map[string]bool, len(names))
		for _, n := range names {
			keep[n] = true
		}
		target = g.Prune(func(n string) bool { return keep[n] })
	}

	c := target.condense()
	n := len(c.comp)
	outDeg := make([]int, n)
	repName := make([]string, n)
	for i, members := range c.comp {
		outDeg[i] = len(c.forward[i])
		memberNames := target.namesOf(members)
		sort.Strings(memberNames)
		repName[i] = memberNames[0]
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if outDeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	var out []string
	emitted := make([]bool, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool { return repName[ready[a]] < repName[ready[b]] })
		i := ready[0]
		ready = ready[1:]
		if emitted[i] {
			continue
		}
		emitted[i] = true

		memberNames := target.namesOf(c.comp[i])
		sort.Strings(memberNames)
		out = append(out, memberNames...)

		for _, pred := range c.back[i] {
			outDeg[pred]--
			if outDeg[pred] == 0 {
				ready = append(ready, pred)
			}
		}
	}
	return out
}
