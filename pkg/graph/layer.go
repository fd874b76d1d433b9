package graph

import "sort"

// Layer is a graph overlaid on a parent graph without copying it.
//
// Edge ids below the parent's edge count belong to the parent; local edge i
// has id parent.EdgeCount()+i. Outgoing edges of a node are the parent's
// edges followed by the local ones. The parent is never modified and may be
// shared by several layers. Edge ids are only stable once the parent is set.
type Layer struct {
	parent Graph
	edges  []Edge
	out    map[int32][]int32 // node -> local edge indices
	nodes  []int32           // sorted distinct node ids referenced locally
}

// NewLayer creates a layer holding edges, with no parent set.
func NewLayer(edges []Edge) *Layer {
	l := &Layer{out: make(map[int32][]int32)}
	for _, e := range edges {
		l.add(e)
	}
	return l
}

// SetParent attaches the graph this layer is overlaid on.
func (l *Layer) SetParent(parent Graph) { l.parent = parent }

// Parent returns the parent graph, or nil.
func (l *Layer) Parent() Graph { return l.parent }

// LocalEdges returns the number of edges owned by this layer.
func (l *Layer) LocalEdges() int { return len(l.edges) }

// LocalEdge returns the i-th local edge.
func (l *Layer) LocalEdge(i int) Edge { return l.edges[i] }

func (l *Layer) add(e Edge) int {
	idx := len(l.edges)
	l.edges = append(l.edges, e)
	l.out[e.Source] = append(l.out[e.Source], int32(idx))
	l.addNode(e.Source)
	l.addNode(e.Target)
	return idx
}

func (l *Layer) addNode(n int32) {
	i := sort.Search(len(l.nodes), func(i int) bool { return l.nodes[i] >= n })
	if i < len(l.nodes) && l.nodes[i] == n {
		return
	}
	l.nodes = append(l.nodes, 0)
	copy(l.nodes[i+1:], l.nodes[i:])
	l.nodes[i] = n
}

func (l *Layer) parentNodes() int {
	if l.parent == nil {
		return 0
	}
	return l.parent.NodeCount()
}

func (l *Layer) parentEdges() int {
	if l.parent == nil {
		return 0
	}
	return l.parent.EdgeCount()
}

// NodeCount reports the parent's node count plus the local nodes beyond it.
// Local node ids may be sparse, so fewer nodes may be reachable.
func (l *Layer) NodeCount() int {
	pn := l.parentNodes()
	i := sort.Search(len(l.nodes), func(i int) bool { return int(l.nodes[i]) >= pn })
	return pn + len(l.nodes) - i
}

func (l *Layer) EdgeCount() int { return l.parentEdges() + len(l.edges) }

func (l *Layer) OutEdgeCount(node int32) int {
	n := len(l.out[node])
	if l.parent != nil {
		n += l.parent.OutEdgeCount(node)
	}
	return n
}

func (l *Layer) OutEdge(node int32, i int) int32 {
	if l.parent != nil {
		pc := l.parent.OutEdgeCount(node)
		if i < pc {
			return l.parent.OutEdge(node, i)
		}
		i -= pc
	}
	return int32(l.parentEdges()) + l.out[node][i]
}

func (l *Layer) local(edge int32) *Edge {
	return &l.edges[int(edge)-l.parentEdges()]
}

func (l *Layer) EdgeSource(edge int32) int32 {
	if int(edge) < l.parentEdges() {
		return l.parent.EdgeSource(edge)
	}
	return l.local(edge).Source
}

func (l *Layer) EdgeTarget(edge int32) int32 {
	if int(edge) < l.parentEdges() {
		return l.parent.EdgeTarget(edge)
	}
	return l.local(edge).Target
}

func (l *Layer) EdgeWeight(edge int32) int32 {
	if int(edge) < l.parentEdges() {
		return l.parent.EdgeWeight(edge)
	}
	return l.local(edge).Weight
}

// EdgeOrigin returns the source-data id of edge. Local edges without an
// origin map to themselves.
func (l *Layer) EdgeOrigin(edge int32) int32 {
	if int(edge) < l.parentEdges() {
		return Origin(l.parent, edge)
	}
	if o := l.local(edge).Origin; o >= 0 {
		return o
	}
	return edge
}
