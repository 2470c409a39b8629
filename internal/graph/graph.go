package graph

import (
	"github.com/OrionReed/ggraph/internal/ir"
)

// Graph is an adjacency-indexed view of one board snapshot.
type Graph struct {
	nodes []ir.Node
	edges []ir.Edge
	index map[string]int

	incoming [][]int
	outgoing [][]int
}

// DeriveEdges returns the edges implied by the board's connectors, in
// connector order. A connector yields an edge only when it is directional
// and both of its ends are bound to nodes present on the board.
// Unlabeled edges are included; they carry no input binding.
func DeriveEdges(b ir.Board) []ir.Edge {
	present := make(map[string]bool, len(b.Nodes))
	for _, n := range b.Nodes {
		present[n.ID] = true
	}

	edges := make([]ir.Edge, 0, len(b.Connectors))
	for _, c := range b.Connectors {
		if !c.Directional || c.Start == "" || c.End == "" {
			continue
		}
		if !present[c.Start] || !present[c.End] {
			continue
		}
		edges = append(edges, ir.Edge{
			ID:    c.ID,
			From:  c.Start,
			To:    c.End,
			Label: ir.NormalizeLabel(c.Label),
		})
	}
	return edges
}

// Build constructs the arena for a board snapshot. When two nodes share an
// id the first one wins.
func Build(b ir.Board) *Graph {
	g := &Graph{
		nodes: make([]ir.Node, 0, len(b.Nodes)),
		index: make(map[string]int, len(b.Nodes)),
	}
	for _, n := range b.Nodes {
		if _, dup := g.index[n.ID]; dup {
			continue
		}
		g.index[n.ID] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}

	g.edges = DeriveEdges(b)
	g.incoming = make([][]int, len(g.nodes))
	g.outgoing = make([][]int, len(g.nodes))
	for i, e := range g.edges {
		from := g.index[e.From]
		to := g.index[e.To]
		g.outgoing[from] = append(g.outgoing[from], i)
		g.incoming[to] = append(g.incoming[to], i)
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the nodes in board order.
func (g *Graph) Nodes() []ir.Node {
	return g.nodes
}

// Edges returns every derived edge in connector order.
func (g *Graph) Edges() []ir.Edge {
	return g.edges
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (ir.Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return ir.Node{}, false
	}
	return g.nodes[i], true
}

// Incoming returns the edges whose To is id, labeled or not.
func (g *Graph) Incoming(id string) []ir.Edge {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.collect(g.incoming[i])
}

// Outgoing returns the edges whose From is id, labeled or not.
func (g *Graph) Outgoing(id string) []ir.Edge {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.collect(g.outgoing[i])
}

func (g *Graph) collect(idx []int) []ir.Edge {
	out := make([]ir.Edge, len(idx))
	for k, i := range idx {
		out[k] = g.edges[i]
	}
	return out
}

// Dependents returns the distinct targets of id's labeled outgoing edges,
// in edge order. Unlabeled edges bind nothing, so they create no dependency.
func (g *Graph) Dependents(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, ei := range g.outgoing[i] {
		e := g.edges[ei]
		if e.Label == "" || seen[e.To] {
			continue
		}
		seen[e.To] = true
		out = append(out, e.To)
	}
	return out
}

// Resolve returns the input map of node id: one entry per labeled incoming
// edge whose source currently supplies a value. When two edges share a
// label, the later connector wins.
func (g *Graph) Resolve(id string) ir.InputMap {
	return ResolveEdges(g.Incoming(id), g.Node)
}

// ResolveEdges builds an input map from edges ending at one node, looking up
// each source with lookup. It serves hosts that answer point queries without
// building a whole graph.
func ResolveEdges(edges []ir.Edge, lookup func(id string) (ir.Node, bool)) ir.InputMap {
	inputs := make(ir.InputMap)
	for _, e := range edges {
		if e.Label == "" {
			continue
		}
		src, ok := lookup(e.From)
		if !ok {
			continue
		}
		v, ok := src.Value()
		if !ok {
			// A later edge with the same label but no value does not
			// erase an earlier resolved one.
			continue
		}
		inputs[e.Label] = ir.Input{
			Value:    v,
			Text:     src.DisplayText(),
			SourceID: src.ID,
		}
	}
	return inputs
}
