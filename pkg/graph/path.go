package graph

// Path is a route through a graph: Edges[i] connects Nodes[i] to Nodes[i+1].
// Length is the summed edge weight.
type Path struct {
	Nodes  []int32
	Edges  []int32
	Length int64
}

// Reset empties the path, keeping its storage.
func (p *Path) Reset() {
	p.Nodes = p.Nodes[:0]
	p.Edges = p.Edges[:0]
	p.Length = 0
}

// Empty reports whether the path has no nodes.
func (p *Path) Empty() bool { return len(p.Nodes) == 0 }

// Weight sums the weights of the path's edges in g.
func (p *Path) Weight(g Graph) int64 {
	var sum int64
	for _, e := range p.Edges {
		sum += int64(g.EdgeWeight(e))
	}
	return sum
}

// Connected reports whether every edge of the path joins consecutive nodes
// in g.
func (p *Path) Connected(g Graph) bool {
	if len(p.Nodes) == 0 {
		return len(p.Edges) == 0
	}
	if len(p.Edges) != len(p.Nodes)-1 {
		return false
	}
	for i, e := range p.Edges {
		if g.EdgeSource(e) != p.Nodes[i] || g.EdgeTarget(e) != p.Nodes[i+1] {
			return false
		}
	}
	return true
}
