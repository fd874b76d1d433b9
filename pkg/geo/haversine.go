package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// metersPerDegree is the length of one degree of latitude on the sphere
// orb uses for its haversine distance.
const metersPerDegree = math.Pi / 180 * orb.EarthRadius

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// Distance returns the great-circle distance in meters between two positions.
func Distance(a, b Position) float64 {
	if a == b {
		return 0
	}
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// Length returns the summed great-circle length in meters of a polyline.
func Length(way []Position) float64 {
	var total float64
	for i := 1; i < len(way); i++ {
		total += Distance(way[i-1], way[i])
	}
	return total
}

// MetersToDegrees converts a radius in meters around latitude lat into the
// half extents of a bounding box in degrees. The longitude extent grows
// toward the poles and is capped at 180°.
func MetersToDegrees(meters, lat float64) (dLat, dLon float64) {
	dLat = meters / metersPerDegree
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-6 {
		return dLat, 180
	}
	dLon = dLat / cosLat
	if dLon > 180 {
		dLon = 180
	}
	return dLat, dLon
}
