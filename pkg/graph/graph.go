package graph

import "offline_router/pkg/geo"

// Graph is the read-only capability every routing graph provides.
// Node ids are dense in [0, NodeCount()); edge ids are unique across a
// layering chain.
type Graph interface {
	NodeCount() int
	EdgeCount() int
	// OutEdgeCount returns the number of outgoing edges of node.
	OutEdgeCount(node int32) int
	// OutEdge returns the id of the i-th outgoing edge of node.
	OutEdge(node int32, i int) int32
	EdgeSource(edge int32) int32
	EdgeTarget(edge int32) int32
	EdgeWeight(edge int32) int32
}

// Originer is implemented by graphs whose edge ids differ from the ids of
// the edges they were read from.
type Originer interface {
	EdgeOrigin(edge int32) int32
}

// Origin maps an edge id of g back to the id it has in its source data.
func Origin(g Graph, edge int32) int32 {
	if o, ok := g.(Originer); ok {
		return o.EdgeOrigin(edge)
	}
	return edge
}

// Edge is a directed, weighted edge. Origin is the id of the edge in the
// graph file it was read from, or -1.
type Edge struct {
	Source int32
	Target int32
	Weight int32
	Origin int32
}

// Static is a directed graph in CSR (Compressed Sparse Row) format.
// Edge i leaves Tail[i]; edges of node u are FirstOut[u]..FirstOut[u+1].
type Static struct {
	FirstOut []uint32       // len: nodes + 1
	Tail     []int32        // len: edges; source node of each edge
	Head     []int32        // len: edges; target node of each edge
	Weight   []int32        // len: edges; distance in meters
	Coords   []geo.Position // len: nodes, may be nil

	// Edge geometry: intermediate shape points for rendering.
	// ShapeFirst[i]..ShapeFirst[i+1] indexes into Shape for edge i.
	ShapeFirst []uint32 // len: edges + 1, may be nil
	Shape      []geo.Position
}

// NodeCount returns the number of nodes.
func (g *Static) NodeCount() int {
	if len(g.FirstOut) == 0 {
		return 0
	}
	return len(g.FirstOut) - 1
}

// EdgeCount returns the number of edges.
func (g *Static) EdgeCount() int { return len(g.Head) }

// EdgesFrom returns the range of edge indices for edges originating from node u.
func (g *Static) EdgesFrom(u int32) (start, end uint32) {
	return g.FirstOut[u], g.FirstOut[u+1]
}

func (g *Static) OutEdgeCount(node int32) int {
	if node < 0 || int(node) >= g.NodeCount() {
		return 0
	}
	return int(g.FirstOut[node+1] - g.FirstOut[node])
}

func (g *Static) OutEdge(node int32, i int) int32 {
	return int32(g.FirstOut[node]) + int32(i)
}

func (g *Static) EdgeSource(edge int32) int32 { return g.Tail[edge] }
func (g *Static) EdgeTarget(edge int32) int32 { return g.Head[edge] }
func (g *Static) EdgeWeight(edge int32) int32 { return g.Weight[edge] }

// EdgeShape returns the intermediate shape points of edge, excluding its
// endpoints. The returned slice aliases g.Shape.
func (g *Static) EdgeShape(edge int32) []geo.Position {
	if g.ShapeFirst == nil {
		return nil
	}
	return g.Shape[g.ShapeFirst[edge]:g.ShapeFirst[edge+1]]
}

// FromEdges builds a Static graph with numNodes nodes from an edge list.
// Edges are stably ordered by source node; the returned slice maps each new
// edge index to its position in edges.
func FromEdges(numNodes int, edges []Edge) (*Static, []int32) {
	firstOut := make([]uint32, numNodes+1)
	for _, e := range edges {
		firstOut[e.Source+1]++
	}
	for i := 1; i <= numNodes; i++ {
		firstOut[i] += firstOut[i-1]
	}

	g := &Static{
		FirstOut: firstOut,
		Tail:     make([]int32, len(edges)),
		Head:     make([]int32, len(edges)),
		Weight:   make([]int32, len(edges)),
	}
	order := make([]int32, len(edges))
	pos := make([]uint32, numNodes)
	copy(pos, firstOut[:numNodes])
	for i, e := range edges {
		idx := pos[e.Source]
		pos[e.Source]++
		g.Tail[idx] = e.Source
		g.Head[idx] = e.Target
		g.Weight[idx] = e.Weight
		order[idx] = int32(i)
	}
	return g, order
}
