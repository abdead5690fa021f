package graph

import "sort"

// SCC is one strongly-connected component: a set of node indices that are
// mutually reachable. A component of size 1 whose single node has no
// self-loop is not a cycle, just an isolated node.
type SCC struct {
	Nodes []int
}

// tarjan computes the strongly-connected components of g using Tarjan's
// algorithm, iteratively (an explicit stack, not recursion, since package
// graphs can be deep). Components are returned in reverse topological
// order, as the algorithm naturally produces.
func (g *Graph) tarjan() []SCC {
	n := len(g.nodes)
	indices := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range indices {
		indices[i] = -1
	}

	var sccs []SCC
	var stack []int
	nextIndex := 0

	type frame struct {
		node    int
		childAt int
	}

	for start := 0; start < n; start++ {
		if indices[start] != -1 {
			continue
		}
		var call []frame
		call = append(call, frame{node: start})
		indices[start] = nextIndex
		lowlink[start] = nextIndex
		nextIndex++
		stack = append(stack, start)
		onStack[start] = true

		for len(call) > 0 {
			top := &call[len(call)-1]
			v := top.node
			if top.childAt < len(g.forward[v]) {
				w := g.forward[v][top.childAt]
				top.childAt++
				if indices[w] == -1 {
					indices[w] = nextIndex
					lowlink[w] = nextIndex
					nextIndex++
					stack = append(stack, w)
					onStack[w] = true
					call = append(call, frame{node: w})
				} else if onStack[w] {
					if indices[w] < lowlink[v] {
						lowlink[v] = indices[w]
					}
				}
			} else {
				call = call[:len(call)-1]
				if len(call) > 0 {
					parent := &call[len(call)-1]
					if lowlink[v] < lowlink[parent.node] {
						lowlink[parent.node] = lowlink[v]
					}
				}
				if lowlink[v] == indices[v] {
					var comp []int
					for {
						w := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						onStack[w] = false
						comp = append(comp, w)
						if w == v {
							break
						}
					}
					sccs = append(sccs, SCC{Nodes: comp})
				}
			}
		}
	}
	return sccs
}

// Cycles returns the non-trivial strongly-connected components of the
// graph (size > 1, or a single node with a self-loop), as sorted name
// lists, for reporting/diagnostics.
func (g *Graph) Cycles() [][]string {
	var out [][]string
	for _, scc := range g.tarjan() {
		if len(scc.Nodes) == 1 {
			i := scc.Nodes[0]
			selfLoop := false
			for _, d := range g.forward[i] {
				if d == i {
					selfLoop = true
					break
				}
			}
			if !selfLoop {
				continue
			}
		}
		names := g.namesOf(scc.Nodes)
		sort.Strings(names)
		out = append(out, names)
	}
	return out
}
