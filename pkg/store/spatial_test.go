package store

import (
	"context"
	"testing"

	"offline_router/pkg/geo"
)

func pointsData(coords ...geo.Position) *Data {
	return &Data{
		Coords:     coords,
		Rank:       make([]int32, len(coords)),
		CellSizeE7: DefaultCellSizeE7,
	}
}

func TestFindPoint(t *testing.T) {
	s := openStore(t, writeData(t, pointsData(geo.FromDegrees(48.0, 9.0))))
	ctx := context.Background()

	tests := []struct {
		name  string
		query geo.Position
		want  int32
	}{
		{"exact", geo.FromDegrees(48.0, 9.0), 0},
		{"nearby", geo.FromDegrees(48.0000050, 9.0000050), 0},
		{"neighbor cell", geo.FromDegrees(47.99999, 8.99999), 0},
		{"within radius", geo.FromDegrees(48.0036, 9.0), 0},
		{"beyond radius", geo.FromDegrees(48.0054, 9.0), -1},
		{"far away", geo.FromDegrees(50.0, 12.0), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindPoint(ctx, tt.query)
			if err != nil {
				t.Fatalf("FindPoint: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindPoint(%v): got %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestFindPointClosest(t *testing.T) {
	s := openStore(t, writeData(t, pointsData(
		geo.FromDegrees(1.3000, 103.8000),
		geo.FromDegrees(1.3010, 103.8000),
		geo.FromDegrees(1.3020, 103.8000),
		geo.FromDegrees(1.3020, 103.8000),
		geo.FromDegrees(-0.0001, -0.0001),
	)))
	ctx := context.Background()

	tests := []struct {
		name  string
		query geo.Position
		want  int32
	}{
		{"first", geo.FromDegrees(1.3001, 103.8000), 0},
		{"middle", geo.FromDegrees(1.3009, 103.8001), 1},
		{"tie goes to smallest id", geo.FromDegrees(1.3025, 103.8000), 2},
		{"across the origin", geo.FromDegrees(0.0001, 0.0001), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindPoint(ctx, tt.query)
			if err != nil {
				t.Fatalf("FindPoint: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindPoint(%v): got %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestFindPointAntimeridian(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		coords []geo.Position
		query  geo.Position
		want   int32
	}{
		{
			"closer across from the west",
			[]geo.Position{geo.FromDegrees(-17.0, 179.9995), geo.FromDegrees(-17.0, -179.9975)},
			geo.FromDegrees(-17.0, -179.9995),
			0,
		},
		{
			"only across from the east",
			[]geo.Position{geo.FromDegrees(-17.0, -179.9998)},
			geo.FromDegrees(-17.0, 179.9998),
			0,
		},
		{
			"near the pole",
			[]geo.Position{geo.FromDegrees(89.9999, 0)},
			geo.FromDegrees(89.9999, 90),
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t, writeData(t, pointsData(tt.coords...)))
			got, err := s.FindPoint(ctx, tt.query)
			if err != nil {
				t.Fatalf("FindPoint: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindPoint(%v): got %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestFindPointRadius(t *testing.T) {
	path := writeData(t, pointsData(geo.FromDegrees(48.0, 9.0)))
	s, err := Open(path, Options{SnapRadiusMeters: 10})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.OpenCache(2); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if got, _ := s.FindPoint(ctx, geo.FromDegrees(48.0000050, 9.0000050)); got != 0 {
		t.Errorf("1m away: got %d, want 0", got)
	}
	if got, _ := s.FindPoint(ctx, geo.FromDegrees(48.0036, 9.0)); got != -1 {
		t.Errorf("400m away: got %d, want -1", got)
	}
}

func TestFindPointEmpty(t *testing.T) {
	s := openStore(t, writeData(t, pointsData()))
	got, err := s.FindPoint(context.Background(), geo.FromDegrees(48.0, 9.0))
	if err != nil {
		t.Fatalf("FindPoint: %v", err)
	}
	if got != -1 {
		t.Errorf("got %d, want -1", got)
	}
}

func TestBuildGrid(t *testing.T) {
	coords := []geo.Position{
		geo.FromE7(150_000, 150_000),
		geo.FromE7(-50_000, 50_000),
		geo.FromE7(120_000, 199_999),
		geo.FromE7(-1, -1),
	}
	cells, nodes := buildGrid(coords, 100_000)

	want := []gridCell{
		{lat: -1, lon: -1, first: 0, count: 1},
		{lat: -1, lon: 0, first: 1, count: 1},
		{lat: 1, lon: 1, first: 2, count: 2},
	}
	if len(cells) != len(want) {
		t.Fatalf("cells: got %d, want %d", len(cells), len(want))
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d: got %+v, want %+v", i, cells[i], want[i])
		}
	}
	wantNodes := []int32{3, 1, 0, 2}
	for i, n := range wantNodes {
		if nodes[i] != n {
			t.Errorf("nodes[%d]: got %d, want %d", i, nodes[i], n)
		}
	}
}
