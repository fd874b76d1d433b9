package main

import (
	"encoding/json"
	"testing"

	"offline_router/pkg/geo"
	"offline_router/pkg/routing"
	"offline_router/pkg/store"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    geo.Position
		wantErr bool
	}{
		{"48.0,9.0", geo.FromDegrees(48.0, 9.0), false},
		{"-33.8688,151.2093", geo.FromDegrees(-33.8688, 151.2093), false},
		{"48.0", geo.Position{}, true},
		{"north,east", geo.Position{}, true},
		{"91,0", geo.Position{}, true},
		{"0,181", geo.Position{}, true},
	}
	for _, tt := range tests {
		got, err := parsePosition(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePosition(%q): err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parsePosition(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRouteCollection(t *testing.T) {
	a, b := geo.FromDegrees(48.0, 9.0), geo.FromDegrees(48.01, 9.0)
	res := &routing.Result{
		Way:        &store.Way{Points: []geo.Position{a, b}},
		Start:      a,
		Dest:       b,
		StartNode:  3,
		DestNode:   7,
		Distance:   1112,
		Time:       8,
		PathLength: 289,
	}

	data, err := json.Marshal(routeCollection(res))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Type != "FeatureCollection" || len(doc.Features) != 3 {
		t.Fatalf("got %s with %d features", doc.Type, len(doc.Features))
	}
	line := doc.Features[0]
	if line.Geometry.Type != "LineString" {
		t.Errorf("first feature: got %s, want LineString", line.Geometry.Type)
	}
	if line.Properties["path_length"] != float64(289) || line.Properties["time"] != float64(8) {
		t.Errorf("line properties: got %v", line.Properties)
	}
	if doc.Features[1].Properties["role"] != "start" || doc.Features[2].Properties["node"] != float64(7) {
		t.Errorf("end points: got %v, %v", doc.Features[1].Properties, doc.Features[2].Properties)
	}
}
