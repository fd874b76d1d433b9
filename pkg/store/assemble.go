package store

import (
	"sort"

	"github.com/pkg/errors"

	"offline_router/pkg/ch"
	"offline_router/pkg/geo"
	"offline_router/pkg/graph"
)

// DefaultCellSizeE7 is the spatial grid cell edge, 0.01 degrees.
const DefaultCellSizeE7 = 100_000

// AssembleOptions configures Assemble.
type AssembleOptions struct {
	CellSizeE7 int32
}

// Assemble lays out a contracted graph in file order. Core nodes are
// renumbered to the front, core edges are grouped by source, and shortcut
// constituents follow the new edge ids. Shapes of original edges are kept.
func Assemble(g *graph.Static, h *ch.Hierarchy, opts AssembleOptions) (*Data, error) {
	n := g.NodeCount()
	if len(h.Rank) != n {
		return nil, errors.Errorf("hierarchy has %d ranks for %d nodes", len(h.Rank), n)
	}
	if len(g.Coords) != n {
		return nil, errors.Errorf("graph has %d coordinates for %d nodes", len(g.Coords), n)
	}
	if len(h.Edges) < g.EdgeCount() {
		return nil, errors.Errorf("hierarchy has %d edges, graph has %d", len(h.Edges), g.EdgeCount())
	}
	cellSize := opts.CellSizeE7
	if cellSize == 0 {
		cellSize = DefaultCellSizeE7
	}

	// Core nodes first, each group in original order.
	newID := make([]int32, n)
	next := int32(0)
	for v := range int32(n) {
		if h.IsCore(v) {
			newID[v] = next
			next++
		}
	}
	numCore := int(next)
	for v := range int32(n) {
		if !h.IsCore(v) {
			newID[v] = next
			next++
		}
	}

	d := &Data{
		Coords:     make([]geo.Position, n),
		Rank:       make([]int32, n),
		NumCore:    numCore,
		Edges:      make([]EdgeRecord, len(h.Edges)),
		CellSizeE7: cellSize,
	}
	for v := range n {
		d.Coords[newID[v]] = g.Coords[v]
		d.Rank[newID[v]] = h.Rank[v]
	}

	// Core edges sorted by new source, then everything else.
	order := make([]int, len(h.Edges))
	for i := range order {
		order[i] = i
	}
	isCore := func(e ch.Edge) bool { return h.IsCore(e.From) && h.IsCore(e.To) }
	sort.SliceStable(order, func(i, j int) bool {
		a, b := h.Edges[order[i]], h.Edges[order[j]]
		ca, cb := isCore(a), isCore(b)
		if ca != cb {
			return ca
		}
		if ca {
			return newID[a.From] < newID[b.From]
		}
		return false
	})

	newEdge := make([]int32, len(h.Edges))
	for i, old := range order {
		newEdge[old] = int32(i)
	}
	for i, old := range order {
		e := h.Edges[old]
		rec := EdgeRecord{
			Source: newID[e.From],
			Target: newID[e.To],
			Weight: e.Weight,
			First:  -1,
			Second: -1,
		}
		if e.IsShortcut() {
			rec.First = newEdge[e.First]
			rec.Second = newEdge[e.Second]
		}
		d.Edges[i] = rec
	}

	if g.ShapeFirst != nil {
		d.ShapeFirst = make([]uint32, len(d.Edges)+1)
		for i, old := range order {
			d.ShapeFirst[i] = uint32(len(d.Shape))
			if old < g.EdgeCount() {
				d.Shape = append(d.Shape, g.EdgeShape(int32(old))...)
			}
		}
		d.ShapeFirst[len(d.Edges)] = uint32(len(d.Shape))
	}

	return d, nil
}
