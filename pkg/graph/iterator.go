package graph

// EdgeIterator walks the outgoing edges of one node in the order the graph
// enumerates them.
//
//	var it EdgeIterator
//	it.Load(g, node)
//	for it.Next() {
//		_ = it.Target
//	}
type EdgeIterator struct {
	g    Graph
	node int32
	i, n int

	Edge   int32
	Target int32
	Weight int32
}

// Load positions the iterator before the first outgoing edge of node.
func (it *EdgeIterator) Load(g Graph, node int32) {
	it.g = g
	it.node = node
	it.i = 0
	it.n = g.OutEdgeCount(node)
}

// Next advances to the next edge and reports whether there was one.
func (it *EdgeIterator) Next() bool {
	if it.i >= it.n {
		return false
	}
	it.Edge = it.g.OutEdge(it.node, it.i)
	it.Target = it.g.EdgeTarget(it.Edge)
	it.Weight = it.g.EdgeWeight(it.Edge)
	it.i++
	return true
}
