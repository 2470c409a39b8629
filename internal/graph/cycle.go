package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Cycle describes a dependency cycle among nodes.
//
// Cycles are warnings, not errors: in lazy mode a cycle simply means a node
// reads a value that was computed from an older version of itself. In eager
// mode each wave evaluates a node at most once, which breaks the loop.
type Cycle struct {
	Path    []string `json:"path"`    // ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// Cycles performs static cycle analysis over the labeled edges.
//
// It runs Tarjan's algorithm to find strongly connected components and
// reports each component with more than one node, or a single node with a
// self loop. An acyclic board returns an empty slice. Output is ordered by
// the first member's position on the board.
func (g *Graph) Cycles() []Cycle {
	sccs := g.tarjanSCC()

	cycles := []Cycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && g.hasSelfLoop(scc[0])) {
			cycles = append(cycles, g.sccToCycle(scc))
		}
	}
	return cycles
}

// successors returns the arena indices reachable over labeled edges.
func (g *Graph) successors(v int) []int {
	var out []int
	for _, ei := range g.outgoing[v] {
		e := g.edges[ei]
		if e.Label == "" {
			continue
		}
		out = append(out, g.index[e.To])
	}
	return out
}

func (g *Graph) hasSelfLoop(v int) bool {
	return slices.Contains(g.successors(v), v)
}

// tarjanSCC returns strongly connected components as sorted arena indices,
// ordered by their smallest member.
func (g *Graph) tarjanSCC() [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(g.nodes))
		lowlink = make([]int, len(g.nodes))
		onStack = make([]bool, len(g.nodes))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.successors(v) {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for v := range g.nodes {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}

	slices.SortFunc(sccs, func(a, b []int) int { return a[0] - b[0] })
	return sccs
}

func (g *Graph) sccToCycle(scc []int) Cycle {
	if len(scc) == 1 {
		id := g.nodes[scc[0]].ID
		return Cycle{
			Path:    []string{id, id},
			Message: fmt.Sprintf("node reads its own value: %s → %s", id, id),
			Level:   "warning",
		}
	}

	path := g.reconstructCyclePath(scc)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("dependency cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks labeled edges inside the component, starting at
// its first member, until it returns to the start.
func (g *Graph) reconstructCyclePath(scc []int) []string {
	member := make(map[int]bool, len(scc))
	for _, v := range scc {
		member[v] = true
	}

	start := scc[0]
	current := start
	path := []string{g.nodes[start].ID}
	visited := make(map[int]bool)

	for {
		visited[current] = true

		next := -1
		for _, w := range g.successors(current) {
			if member[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next < 0 {
			break
		}

		path = append(path, g.nodes[next].ID)
		if next == start {
			break
		}
		current = next
	}
	return path
}
