package graph

import (
	"sort"

	"github.com/paulmach/osm"

	"offline_router/pkg/geo"
	osmparser "offline_router/pkg/osm"
)

// Build creates a Static graph from parsed OSM edges.
// Node indices follow the order in which edges first reference OSM nodes.
func Build(result *osmparser.ParseResult) *Static {
	edges := result.Edges
	if len(edges) == 0 {
		return &Static{}
	}

	// Step 1: Collect all unique node IDs and build a compact mapping.
	nodeSet := make(map[osm.NodeID]int32)
	var nodeIDs []osm.NodeID

	addNode := func(id osm.NodeID) int32 {
		if idx, ok := nodeSet[id]; ok {
			return idx
		}
		idx := int32(len(nodeIDs))
		nodeSet[id] = idx
		nodeIDs = append(nodeIDs, id)
		return idx
	}

	for i := range edges {
		addNode(edges[i].FromNodeID)
		addNode(edges[i].ToNodeID)
	}

	numNodes := len(nodeIDs)

	// Step 2: Remap and sort edges by (source, target) for deterministic output.
	order := make([]int, len(edges))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := &edges[order[i]], &edges[order[j]]
		sa, sb := nodeSet[a.FromNodeID], nodeSet[b.FromNodeID]
		if sa != sb {
			return sa < sb
		}
		return nodeSet[a.ToNodeID] < nodeSet[b.ToNodeID]
	})

	compact := make([]Edge, len(edges))
	for i, idx := range order {
		e := &edges[idx]
		compact[i] = Edge{
			Source: nodeSet[e.FromNodeID],
			Target: nodeSet[e.ToNodeID],
			Weight: e.Weight,
			Origin: -1,
		}
	}

	// Step 3: CSR arrays. compact is already in source order.
	g, _ := FromEdges(numNodes, compact)

	g.ShapeFirst = make([]uint32, len(compact)+1)
	for i, idx := range order {
		g.ShapeFirst[i] = uint32(len(g.Shape))
		g.Shape = append(g.Shape, edges[idx].Shape...)
	}
	g.ShapeFirst[len(compact)] = uint32(len(g.Shape))

	// Step 4: Populate node coordinates.
	g.Coords = make([]geo.Position, numNodes)
	for id, idx := range nodeSet {
		g.Coords[idx] = result.Nodes[id]
	}

	return g
}
