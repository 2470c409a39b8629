package graph

// Order returns every node id so that, outside of cycles, each node comes
// after the nodes it reads from over labeled edges. Ties keep board order.
// Nodes on or behind a cycle follow in board order.
func (g *Graph) Order() []string {
	indegree := make([]int, len(g.nodes))
	for v := range g.nodes {
		for _, w := range g.successors(v) {
			indegree[w]++
		}
	}

	out := make([]string, 0, len(g.nodes))
	placed := make([]bool, len(g.nodes))
	for {
		progressed := false
		for v := range g.nodes {
			if placed[v] || indegree[v] > 0 {
				continue
			}
			placed[v] = true
			progressed = true
			out = append(out, g.nodes[v].ID)
			for _, w := range g.successors(v) {
				indegree[w]--
			}
			// Restart so that a newly freed earlier node keeps board order.
			break
		}
		if !progressed {
			break
		}
	}

	for v := range g.nodes {
		if !placed[v] {
			out = append(out, g.nodes[v].ID)
		}
	}
	return out
}
