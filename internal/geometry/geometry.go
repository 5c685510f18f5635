package geometry

import (
	"math"

	"github.com/twpayne/go-geom"

	"gpx_viewer/internal/models"
)

const (
	// EarthRadiusMeters is the mean Earth radius used by HaversineMeters.
	EarthRadiusMeters = 6371000.0

	// DefaultMinOverlap is the share of a route's box that must fall inside the query box.
	DefaultMinOverlap = 0.6
)

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RouteStats sums consecutive haversine segments over the waypoints and
// reports the envelope. Distance is in kilometers, rounded to 2 decimals.
// Fewer than two waypoints yield zero distance and no bounds.
func RouteStats(waypoints []models.Waypoint) models.Stats {
	stats := models.Stats{WaypointCount: len(waypoints)}
	if len(waypoints) < 2 {
		return stats
	}

	var total float64
	for i := 1; i < len(waypoints); i++ {
		prev, cur := waypoints[i-1], waypoints[i]
		total += HaversineMeters(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
	}

	stats.DistanceKm = math.Round(total/1000*100) / 100
	stats.Bounds = Envelope(waypoints)
	return stats
}

// Envelope returns the min/max lat/lon box around the waypoints, or nil when empty.
func Envelope(waypoints []models.Waypoint) *models.Bounds {
	if len(waypoints) == 0 {
		return nil
	}

	b := geom.NewBounds(geom.XY)
	for _, wp := range waypoints {
		b.Extend(geom.NewPointFlat(geom.XY, []float64{wp.Lon, wp.Lat}))
	}
	return fromGeomBounds(b)
}

// TrackEnvelope returns the box around every track point, or nil when there are none.
func TrackEnvelope(tracks []models.Track) *models.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, line := range tracks {
		if len(line) == 0 {
			continue
		}
		b.Extend(lineString(line))
	}
	if b.IsEmpty() {
		return nil
	}
	return fromGeomBounds(b)
}

// x is longitude, y is latitude
func fromGeomBounds(b *geom.Bounds) *models.Bounds {
	return &models.Bounds{
		North: b.Max(1),
		South: b.Min(1),
		East:  b.Max(0),
		West:  b.Min(0),
	}
}

// BoundsOverlap reports whether at least minRatio of the route's box lies
// inside the query box. A missing box on either side means no filtering.
func BoundsOverlap(route, query *models.Bounds, minRatio float64) bool {
	if route == nil || query == nil {
		return true
	}

	north := math.Min(route.North, query.North)
	south := math.Max(route.South, query.South)
	east := math.Min(route.East, query.East)
	west := math.Max(route.West, query.West)

	if north <= south || east <= west {
		return false
	}

	routeArea := (route.North - route.South) * (route.East - route.West)
	if routeArea <= 0 {
		return false
	}

	intersection := (north - south) * (east - west)
	return intersection/routeArea >= minRatio
}
