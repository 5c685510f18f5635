package gpx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gpx_viewer/internal/models"
)

// ErrMalformed is wrapped by every decode failure.
var ErrMalformed = errors.New("malformed gpx")

// Geometry is the decoded content of a GPX file.
type Geometry struct {
	Tracks      []models.Track
	Waypoints   []models.Waypoint
	Name        string
	Description string
}

// DecodeFile reads and decodes the GPX file at path.
func DecodeFile(path string) (*Geometry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode parses GPX text. Empty track segments are dropped. When the file
// declares no waypoints, the first and last point of every track become
// "Start" and "End" waypoints.
func Decode(r io.Reader) (*Geometry, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	geo := &Geometry{
		Tracks:      []models.Track{},
		Waypoints:   []models.Waypoint{},
		Name:        strings.TrimSpace(doc.name()),
		Description: strings.TrimSpace(doc.description()),
	}

	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			if len(seg.Points) == 0 {
				continue
			}
			line := make(models.Track, 0, len(seg.Points))
			for _, p := range seg.Points {
				lat, lon, err := p.coordinates()
				if err != nil {
					return nil, err
				}
				line = append(line, models.LatLon{lat, lon})
			}
			geo.Tracks = append(geo.Tracks, line)
		}
	}

	for _, p := range doc.Waypoints {
		lat, lon, err := p.coordinates()
		if err != nil {
			return nil, err
		}
		label := strings.TrimSpace(p.Name)
		if label == "" {
			label = fmt.Sprintf("Waypoint %d", len(geo.Waypoints)+1)
		}
		geo.Waypoints = append(geo.Waypoints, models.Waypoint{Lat: lat, Lon: lon, Label: label})
	}

	if len(geo.Waypoints) == 0 {
		for _, line := range geo.Tracks {
			first, last := line[0], line[len(line)-1]
			geo.Waypoints = append(geo.Waypoints,
				models.Waypoint{Lat: first.Lat(), Lon: first.Lon(), Label: "Start"},
				models.Waypoint{Lat: last.Lat(), Lon: last.Lon(), Label: "End"},
			)
		}
	}

	return geo, nil
}

func (p point) coordinates() (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad latitude %q", ErrMalformed, p.Lat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad longitude %q", ErrMalformed, p.Lon)
	}
	return lat, lon, nil
}

// Encode builds a GPX 1.1 document holding one track with a single segment
// through every waypoint. Explicit wpt elements are written for the first
// and last point, or for all points when there are at most five.
func Encode(waypoints []models.Waypoint, name, description string) ([]byte, error) {
	now := time.Now()
	if description == "" {
		description = "Route created with GPX Editor - " + now.Format("2006-01-02 15:04:05")
	}

	doc := document{
		Version: "1.1",
		Creator: Creator,
		XMLNS:   Namespace,
		Metadata: &metadata{
			Name: name,
			Desc: description,
			Time: now.UTC().Format(time.RFC3339),
		},
		Waypoints: []point{},
	}

	seg := segment{Points: make([]point, 0, len(waypoints))}
	for i, wp := range waypoints {
		lat := formatCoordinate(wp.Lat)
		lon := formatCoordinate(wp.Lon)
		seg.Points = append(seg.Points, point{Lat: lat, Lon: lon})

		if i == 0 || i == len(waypoints)-1 || len(waypoints) <= 5 {
			label := wp.Label
			if label == "" {
				label = fmt.Sprintf("Point %d", i+1)
			}
			doc.Waypoints = append(doc.Waypoints, point{Lat: lat, Lon: lon, Name: label})
		}
	}
	doc.Tracks = []track{{Name: name, Segments: []segment{seg}}}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode GPX: %w", err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// formatCoordinate uses the shortest representation that parses back to v.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
