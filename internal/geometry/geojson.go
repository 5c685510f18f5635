package geometry

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"gpx_viewer/internal/models"
)

func lineString(line models.Track) *geom.LineString {
	flat := make([]float64, 0, len(line)*2)
	for _, p := range line {
		flat = append(flat, p.Lon(), p.Lat())
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// ToFeatureCollection renders a route as GeoJSON: one LineString per track
// and one Point per waypoint. Route fields are copied into the properties.
func ToFeatureCollection(route *models.Route) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	for i, line := range route.Tracks {
		if len(line) < 2 {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: lineString(line),
			Properties: map[string]interface{}{
				"filename":   route.Filename,
				"name":       route.Name,
				"routeType":  route.RouteType,
				"isFavorite": route.IsFavorite,
				"distanceKm": route.Stats.DistanceKm,
				"track":      i,
				"pointCount": len(line),
			},
		})
	}

	for i, wp := range route.Waypoints {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{wp.Lon, wp.Lat}),
			Properties: map[string]interface{}{
				"filename": route.Filename,
				"label":    wp.Label,
				"index":    i,
			},
		})
	}

	if b := TrackEnvelope(route.Tracks); b != nil {
		fc.BBox = geom.NewBounds(geom.XY).Set(b.West, b.South, b.East, b.North)
	}

	return fc
}
