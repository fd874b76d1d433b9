package graph

import "offline_router/pkg/geo"

// UnionFind implements a disjoint-set data structure with path halving
// and union by rank.
type UnionFind struct {
	parent []int32
	rank   []byte
	size   []int32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int32, n)
	size := make([]int32, n)
	for i := range n {
		parent[i] = int32(i)
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x int32) int32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y int32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x int32) int {
	return int(uf.size[uf.Find(x)])
}

// LargestComponent returns the node indices belonging to the largest
// weakly connected component, in ascending order.
func LargestComponent(g *Static) []int32 {
	n := g.NodeCount()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for e := range g.Head {
		uf.Union(g.Tail[e], g.Head[e])
	}

	bestRoot := int32(0)
	bestSize := 0
	for i := range int32(n) {
		if s := uf.Size(i); s > bestSize {
			bestRoot = uf.Find(i)
			bestSize = s
		}
	}

	nodes := make([]int32, 0, bestSize)
	for i := range int32(n) {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// FilterToComponent creates a new graph containing only the specified nodes
// and the edges between them. Shapes and coordinates are carried over.
func FilterToComponent(g *Static, nodes []int32) *Static {
	if len(nodes) == 0 {
		return &Static{}
	}

	oldToNew := make(map[int32]int32, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = int32(newIdx)
	}

	var edges []Edge
	var kept []int32
	for _, oldU := range nodes {
		start, end := g.EdgesFrom(oldU)
		for e := start; e < end; e++ {
			newV, ok := oldToNew[g.Head[e]]
			if !ok {
				continue
			}
			edges = append(edges, Edge{
				Source: oldToNew[oldU],
				Target: newV,
				Weight: g.Weight[e],
				Origin: -1,
			})
			kept = append(kept, int32(e))
		}
	}

	out, order := FromEdges(len(nodes), edges)

	out.ShapeFirst = make([]uint32, len(edges)+1)
	for i, idx := range order {
		out.ShapeFirst[i] = uint32(len(out.Shape))
		out.Shape = append(out.Shape, g.EdgeShape(kept[idx])...)
	}
	out.ShapeFirst[len(edges)] = uint32(len(out.Shape))

	if g.Coords != nil {
		out.Coords = make([]geo.Position, len(nodes))
		for newIdx, oldIdx := range nodes {
			out.Coords[newIdx] = g.Coords[oldIdx]
		}
	}
	return out
}
