package osm

import (
	"math"
	"testing"

	"github.com/paulmach/osm"

	"offline_router/pkg/geo"
)

func TestIsCarAccessible(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{
			name: "residential road",
			tags: osm.Tags{{Key: "highway", Value: "residential"}},
			want: true,
		},
		{
			name: "motorway",
			tags: osm.Tags{{Key: "highway", Value: "motorway"}},
			want: true,
		},
		{
			name: "footway (not car accessible)",
			tags: osm.Tags{{Key: "highway", Value: "footway"}},
			want: false,
		},
		{
			name: "cycleway",
			tags: osm.Tags{{Key: "highway", Value: "cycleway"}},
			want: false,
		},
		{
			name: "private access",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "access", Value: "private"},
			},
			want: false,
		},
		{
			name: "no access",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "access", Value: "no"},
			},
			want: false,
		},
		{
			name: "motor_vehicle=no",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "motor_vehicle", Value: "no"},
			},
			want: false,
		},
		{
			name: "area=yes (pedestrian plaza)",
			tags: osm.Tags{
				{Key: "highway", Value: "service"},
				{Key: "area", Value: "yes"},
			},
			want: false,
		},
		{
			name: "service road",
			tags: osm.Tags{{Key: "highway", Value: "service"}},
			want: true,
		},
		{
			name: "living_street",
			tags: osm.Tags{{Key: "highway", Value: "living_street"}},
			want: true,
		},
		{
			name: "no highway tag",
			tags: osm.Tags{{Key: "name", Value: "Some Street"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isCarAccessible(tt.tags)
			if got != tt.want {
				t.Errorf("isCarAccessible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectionFlags(t *testing.T) {
	tests := []struct {
		name         string
		tags         osm.Tags
		wantForward  bool
		wantBackward bool
	}{
		{
			name:         "default bidirectional",
			tags:         osm.Tags{{Key: "highway", Value: "residential"}},
			wantForward:  true,
			wantBackward: true,
		},
		{
			name:         "motorway implied oneway",
			tags:         osm.Tags{{Key: "highway", Value: "motorway"}},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name:         "motorway_link implied oneway",
			tags:         osm.Tags{{Key: "highway", Value: "motorway_link"}},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "roundabout implied oneway",
			tags: osm.Tags{
				{Key: "highway", Value: "residential"},
				{Key: "junction", Value: "roundabout"},
			},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "explicit oneway=yes",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "yes"},
			},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "explicit oneway=true",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "true"},
			},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "explicit oneway=1",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "1"},
			},
			wantForward:  true,
			wantBackward: false,
		},
		{
			name: "explicit oneway=-1 (reverse)",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "-1"},
			},
			wantForward:  false,
			wantBackward: true,
		},
		{
			name: "explicit oneway=reverse",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "reverse"},
			},
			wantForward:  false,
			wantBackward: true,
		},
		{
			name: "explicit oneway=no overrides implied",
			tags: osm.Tags{
				{Key: "highway", Value: "motorway"},
				{Key: "oneway", Value: "no"},
			},
			wantForward:  true,
			wantBackward: true,
		},
		{
			name: "oneway=reversible skips entirely",
			tags: osm.Tags{
				{Key: "highway", Value: "primary"},
				{Key: "oneway", Value: "reversible"},
			},
			wantForward:  false,
			wantBackward: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, bwd := directionFlags(tt.tags)
			if fwd != tt.wantForward || bwd != tt.wantBackward {
				t.Errorf("directionFlags() = (%v, %v), want (%v, %v)", fwd, bwd, tt.wantForward, tt.wantBackward)
			}
		})
	}
}

func TestEdgeWeight(t *testing.T) {
	tests := []struct {
		meters float64
		want   int32
	}{
		{0, 1},
		{0.4, 1},
		{1.5, 2},
		{1234.4, 1234},
		{1e12, math.MaxInt32},
	}
	for _, tt := range tests {
		if got := edgeWeight(tt.meters); got != tt.want {
			t.Errorf("edgeWeight(%v) = %d, want %d", tt.meters, got, tt.want)
		}
	}
}

func TestSplitWay(t *testing.T) {
	coords := map[osm.NodeID]geo.Position{
		1: geo.FromDegrees(48.000, 9.000),
		2: geo.FromDegrees(48.001, 9.000),
		3: geo.FromDegrees(48.002, 9.000),
		4: geo.FromDegrees(48.003, 9.000),
		5: geo.FromDegrees(48.004, 9.000),
	}
	// 1 and 5 are way ends, 3 is shared with another way.
	junctions := map[osm.NodeID]bool{1: true, 3: true, 5: true}
	junction := func(id osm.NodeID) bool { return junctions[id] }
	w := wayInfo{NodeIDs: []osm.NodeID{1, 2, 3, 4, 5}, Forward: true, Backward: true}

	var st splitStats
	edges := splitWay(nil, w, coords, junction, nil, &st)

	if len(edges) != 4 {
		t.Fatalf("got %d edges, want 4", len(edges))
	}
	want := []struct {
		from, to osm.NodeID
		shape    osm.NodeID
	}{
		{1, 3, 2},
		{3, 1, 2},
		{3, 5, 4},
		{5, 3, 4},
	}
	for i, wt := range want {
		e := edges[i]
		if e.FromNodeID != wt.from || e.ToNodeID != wt.to {
			t.Errorf("edge %d = %d->%d, want %d->%d", i, e.FromNodeID, e.ToNodeID, wt.from, wt.to)
		}
		if len(e.Shape) != 1 || e.Shape[0] != coords[wt.shape] {
			t.Errorf("edge %d shape = %v, want node %d", i, e.Shape, wt.shape)
		}
		// Two segments of ~111 m each.
		if e.Weight < 220 || e.Weight > 225 {
			t.Errorf("edge %d weight = %d, want ~222", i, e.Weight)
		}
	}
	if st.missing != 0 || st.outside != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSplitWayFilters(t *testing.T) {
	coords := map[osm.NodeID]geo.Position{
		1: geo.FromDegrees(48.0, 9.0),
		2: geo.FromDegrees(48.1, 9.0),
		3: geo.FromDegrees(50.0, 9.0),
	}
	all := func(osm.NodeID) bool { return true }
	box := BBox{MinLat: 47, MaxLat: 49, MinLng: 8, MaxLng: 10}
	inside := func(p geo.Position) bool { return box.Contains(p.Lat(), p.Lon()) }

	var st splitStats
	w := wayInfo{NodeIDs: []osm.NodeID{1, 2, 3, 4}, Forward: true}
	edges := splitWay(nil, w, coords, all, inside, &st)

	if len(edges) != 1 || edges[0].FromNodeID != 1 || edges[0].ToNodeID != 2 {
		t.Fatalf("edges = %+v, want only 1->2", edges)
	}
	if len(edges[0].Shape) != 0 {
		t.Errorf("direct edge should have no shape, got %v", edges[0].Shape)
	}
	if st.outside != 1 || st.missing != 1 {
		t.Errorf("stats = %+v, want 1 outside, 1 missing", st)
	}
}
