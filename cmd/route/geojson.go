package main

import (
	geojson "github.com/paulmach/go.geojson"

	"offline_router/pkg/geo"
	"offline_router/pkg/routing"
)

func point(p geo.Position) []float64 {
	return []float64{p.Lon(), p.Lat()}
}

// routeCollection renders a route as its line plus the two snapped end
// points.
func routeCollection(res *routing.Result) *geojson.FeatureCollection {
	coords := make([][]float64, len(res.Way.Points))
	for i, p := range res.Way.Points {
		coords[i] = point(p)
	}

	line := geojson.NewLineStringFeature(coords)
	line.SetProperty("distance", res.Distance)
	line.SetProperty("time", res.Time)
	line.SetProperty("path_length", res.PathLength)

	start := geojson.NewPointFeature(point(res.Start))
	start.SetProperty("role", "start")
	start.SetProperty("node", res.StartNode)

	dest := geojson.NewPointFeature(point(res.Dest))
	dest.SetProperty("role", "dest")
	dest.SetProperty("node", res.DestNode)

	fc := geojson.NewFeatureCollection()
	fc.AddFeature(line)
	fc.AddFeature(start)
	fc.AddFeature(dest)
	return fc
}

func nearestFeature(node int32, p geo.Position) *geojson.Feature {
	f := geojson.NewPointFeature(point(p))
	f.SetProperty("node", node)
	return f
}
