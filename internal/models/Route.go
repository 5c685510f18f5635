package models

// DefaultRouteType is applied when neither the caller nor the metadata store names a category.
const DefaultRouteType = "cycling"

// Route is the assembled view of a GPX file plus its sidecar metadata.
// Tracks and Waypoints come from the file; Stats is recomputed on every read.
type Route struct {
	Filename    string `json:"filename"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RouteType   string `json:"routeType"`
	IsFavorite  bool   `json:"isFavorite"`
	CreatedAt   string `json:"createdAt,omitempty"`
	ModifiedAt  string `json:"modifiedAt,omitempty"`

	Tracks    []Track    `json:"tracks"`
	Waypoints []Waypoint `json:"waypoints"`
	Stats     Stats      `json:"stats"`

	// Version linkage
	IsVersion    bool              `json:"isVersion,omitempty"`
	OriginalFile string            `json:"originalFile,omitempty"`
	VersionCount int               `json:"versionCount"`
	Versions     []VersionSnapshot `json:"versions,omitempty"`
}

// Track is an unlabeled polyline.
type Track []LatLon

// Stats holds the derived figures of a route.
type Stats struct {
	DistanceKm    float64 `json:"distanceKm"`
	WaypointCount int     `json:"waypointCount"`
	Bounds        *Bounds `json:"bounds"`
}

// Bounds is a rectangular lat/lon envelope.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// VersionSnapshot describes an immutable backup of a route's prior content.
type VersionSnapshot struct {
	Filename     string `json:"filename"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	CreatedAt    string `json:"createdAt,omitempty"`
	OriginalFile string `json:"originalFile"`
}
