package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Position is an immutable geographic coordinate in fixed point, scaled by 1e7.
// Two positions are equal when both integer components are equal, so
// Position can be compared with == and used as a map key.
type Position struct {
	latE7 int32
	lonE7 int32
}

// FromE7 creates a Position from 1e7-scaled integer degrees.
func FromE7(latE7, lonE7 int32) Position {
	return Position{latE7: latE7, lonE7: lonE7}
}

// FromE6 creates a Position from 1e6-scaled integer degrees.
func FromE6(latE6, lonE6 int32) Position {
	return Position{latE7: latE6 * 10, lonE7: lonE6 * 10}
}

// FromDegrees creates a Position from floating point degrees, rounding to
// the nearest 1e-7 degree.
func FromDegrees(lat, lon float64) Position {
	return Position{
		latE7: int32(math.Round(lat * 1e7)),
		lonE7: int32(math.Round(lon * 1e7)),
	}
}

// FromPoint converts an orb point (X = longitude, Y = latitude).
func FromPoint(p orb.Point) Position {
	return FromDegrees(p.Lat(), p.Lon())
}

func (p Position) LatE7() int32 { return p.latE7 }
func (p Position) LonE7() int32 { return p.lonE7 }

// LatE6 truncates toward zero, matching integer division of the E7 value.
func (p Position) LatE6() int32 { return p.latE7 / 10 }
func (p Position) LonE6() int32 { return p.lonE7 / 10 }

func (p Position) Lat() float64 { return float64(p.latE7) / 1e7 }
func (p Position) Lon() float64 { return float64(p.lonE7) / 1e7 }

// Point returns the position as an orb point (X = longitude, Y = latitude).
func (p Position) Point() orb.Point {
	return orb.Point{p.Lon(), p.Lat()}
}

func (p Position) String() string {
	return fmt.Sprintf("[%+12.7f N %+12.7f E]", p.Lat(), p.Lon())
}
