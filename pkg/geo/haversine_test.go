package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name: "Stuttgart to Munich",
			lat1: 48.7758, lon1: 9.1829,
			lat2: 48.1351, lon2: 11.5820,
			wantMeters:       190_500,
			tolerancePercent: 1,
		},
		{
			name: "Same point",
			lat1: 48.7758, lon1: 9.1829,
			lat2: 48.7758, lon2: 9.1829,
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name: "London to Paris",
			lat1: 51.5074, lon1: -0.1278,
			lat2: 48.8566, lon2: 2.3522,
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
		{
			name: "Short distance (~100m)",
			lat1: 48.0000, lon1: 9.0000,
			lat2: 48.0009, lon2: 9.0000,
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestDistanceMatchesHaversine(t *testing.T) {
	a := FromDegrees(48.0, 9.0)
	b := FromDegrees(48.0000050, 9.0000050)

	got := Distance(a, b)
	want := Haversine(48.0, 9.0, 48.0000050, 9.0000050)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Distance = %f, Haversine = %f", got, want)
	}
	if got <= 0 || got > 1 {
		t.Errorf("Distance = %f m, want (0, 1]", got)
	}
	if Distance(a, a) != 0 {
		t.Errorf("Distance(a, a) = %f, want 0", Distance(a, a))
	}
}

func TestLength(t *testing.T) {
	way := []Position{
		FromDegrees(48.0, 9.0),
		FromDegrees(48.001, 9.0),
		FromDegrees(48.001, 9.001),
	}
	want := Distance(way[0], way[1]) + Distance(way[1], way[2])
	if got := Length(way); math.Abs(got-want) > 1e-9 {
		t.Errorf("Length = %f, want %f", got, want)
	}
	if got := Length(way[:1]); got != 0 {
		t.Errorf("Length of single point = %f, want 0", got)
	}
	if got := Length(nil); got != 0 {
		t.Errorf("Length(nil) = %f, want 0", got)
	}
}

func TestMetersToDegrees(t *testing.T) {
	dLat, dLon := MetersToDegrees(1000, 0)
	if math.Abs(dLat-dLon) > 1e-9 {
		t.Errorf("at the equator dLat=%f dLon=%f, want equal", dLat, dLon)
	}
	back := Haversine(0, 0, dLat, 0)
	if math.Abs(back-1000) > 1 {
		t.Errorf("dLat %f covers %f m, want ~1000 m", dLat, back)
	}

	dLat60, dLon60 := MetersToDegrees(1000, 60)
	if math.Abs(dLon60-2*dLat60) > 1e-6 {
		t.Errorf("at 60° dLon=%f, want ~2*dLat=%f", dLon60, 2*dLat60)
	}

	_, dLonPole := MetersToDegrees(1000, 90)
	if dLonPole != 180 {
		t.Errorf("at the pole dLon=%f, want 180", dLonPole)
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(48.7758, 9.1829, 48.1351, 11.5820)
	}
}
