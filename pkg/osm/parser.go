package osm

import (
	"context"
	"io"
	"math"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"offline_router/pkg/geo"
)

// RawEdge represents a directed edge parsed from OSM data.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Weight     int32          // distance in meters
	Shape      []geo.Position // intermediate shape points (excluding from/to)
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges []RawEdge
	Nodes map[osm.NodeID]geo.Position
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent, skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox   BBox // if non-zero, filter edges to this bounding box
	Logger *zap.Logger
}

// Parse reads an OSM PBF file and returns directed edges for car routing.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: Scan ways, counting how often each node is referenced.
	// Nodes used once in the middle of a way become shape points.
	refs := make(map[osm.NodeID]uint16)
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || len(w.Nodes) < 2 || !isCarAccessible(w.Tags) {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			if refs[wn.ID] < math.MaxUint16 {
				refs[wn.ID]++
			}
		}
		// Way ends are always graph nodes.
		refs[nodeIDs[0]] = max(refs[nodeIDs[0]], 2)
		refs[nodeIDs[len(nodeIDs)-1]] = max(refs[nodeIDs[len(nodeIDs)-1]], 2)

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			Forward:  fwd,
			Backward: bwd,
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, errors.Wrap(err, "pass 1 (ways)")
	}
	scanner.Close()

	logger.Info("pass 1 complete", zap.Int("ways", len(ways)), zap.Int("referenced_nodes", len(refs)))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seek for pass 2")
	}

	coords := make(map[osm.NodeID]geo.Position, len(refs))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := refs[n.ID]; needed {
			coords[n.ID] = geo.FromDegrees(n.Lat, n.Lon)
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, errors.Wrap(err, "pass 2 (nodes)")
	}
	scanner.Close()

	logger.Info("pass 2 complete", zap.Int("coordinates", len(coords)))

	junction := func(id osm.NodeID) bool { return refs[id] > 1 }
	var inside func(geo.Position) bool
	if useBBox {
		inside = func(p geo.Position) bool { return opt.BBox.Contains(p.Lat(), p.Lon()) }
	}

	var edges []RawEdge
	var st splitStats
	for _, w := range ways {
		edges = splitWay(edges, w, coords, junction, inside, &st)
	}

	if st.missing > 0 {
		logger.Warn("skipped edges due to missing node coordinates", zap.Int("edges", st.missing))
	}
	if st.outside > 0 {
		logger.Info("filtered edges outside bounding box", zap.Int("edges", st.outside))
	}
	logger.Info("built directed edges", zap.Int("edges", len(edges)))

	// Only graph nodes keep coordinates; shape points live on the edges.
	nodes := make(map[osm.NodeID]geo.Position)
	for _, e := range edges {
		nodes[e.FromNodeID] = coords[e.FromNodeID]
		nodes[e.ToNodeID] = coords[e.ToNodeID]
	}

	return &ParseResult{
		Edges: edges,
		Nodes: nodes,
	}, nil
}

type splitStats struct {
	missing int
	outside int
}

// splitWay cuts a way into edges between junction nodes and appends them to
// edges. Intermediate nodes become shape points. A chain with a missing
// coordinate, or with a point rejected by inside, is dropped.
func splitWay(edges []RawEdge, w wayInfo, coords map[osm.NodeID]geo.Position,
	junction func(osm.NodeID) bool, inside func(geo.Position) bool, st *splitStats) []RawEdge {
	start := 0
	for start < len(w.NodeIDs)-1 {
		end := start + 1
		for end < len(w.NodeIDs)-1 && !junction(w.NodeIDs[end]) {
			end++
		}

		chain := w.NodeIDs[start : end+1]
		start = end

		pts := make([]geo.Position, len(chain))
		ok := true
		for i, id := range chain {
			p, found := coords[id]
			if !found {
				st.missing++
				ok = false
				break
			}
			pts[i] = p
		}
		if !ok {
			continue
		}
		if inside != nil {
			for _, p := range pts {
				if !inside(p) {
					ok = false
					break
				}
			}
			if !ok {
				st.outside++
				continue
			}
		}

		weight := edgeWeight(geo.Length(pts))
		shape := pts[1 : len(pts)-1]

		if w.Forward {
			edges = append(edges, RawEdge{
				FromNodeID: chain[0],
				ToNodeID:   chain[len(chain)-1],
				Weight:     weight,
				Shape:      shape,
			})
		}
		if w.Backward {
			rev := make([]geo.Position, len(shape))
			for i, p := range shape {
				rev[len(shape)-1-i] = p
			}
			edges = append(edges, RawEdge{
				FromNodeID: chain[len(chain)-1],
				ToNodeID:   chain[0],
				Weight:     weight,
				Shape:      rev,
			})
		}
	}
	return edges
}

// edgeWeight converts a segment length into a routing weight in whole meters.
// Zero-weight edges are bumped to 1.
func edgeWeight(meters float64) int32 {
	w := math.Round(meters)
	if w < 1 {
		return 1
	}
	if w > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(w)
}
