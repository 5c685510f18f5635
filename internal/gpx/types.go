package gpx

import "encoding/xml"

const (
	// Namespace is the GPX 1.1 schema namespace written on every encoded file.
	Namespace = "http://www.topografix.com/GPX/1/1"

	// Creator identifies files written by this service.
	Creator = "GPX Route Editor"
)

// document mirrors the subset of GPX 1.0/1.1 the service reads and writes.
// Elements it does not model (elevation, time, extensions) are ignored on decode.
type document struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr,omitempty"`
	Creator string   `xml:"creator,attr,omitempty"`
	XMLNS   string   `xml:"xmlns,attr,omitempty"`

	Metadata *metadata `xml:"metadata,omitempty"`

	// GPX 1.0 keeps name and desc at the root
	Name string `xml:"name,omitempty"`
	Desc string `xml:"desc,omitempty"`

	Waypoints []point `xml:"wpt"`
	Tracks    []track `xml:"trk"`
}

type metadata struct {
	Name string `xml:"name,omitempty"`
	Desc string `xml:"desc,omitempty"`
	Time string `xml:"time,omitempty"`
}

type track struct {
	Name     string    `xml:"name,omitempty"`
	Segments []segment `xml:"trkseg"`
}

type segment struct {
	Points []point `xml:"trkpt"`
}

// point is shared by wpt and trkpt. Coordinates stay strings so a missing
// or garbled attribute is reported instead of silently becoming zero.
type point struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Name string `xml:"name,omitempty"`
}

func (d *document) name() string {
	if d.Metadata != nil && d.Metadata.Name != "" {
		return d.Metadata.Name
	}
	return d.Name
}

func (d *document) description() string {
	if d.Metadata != nil && d.Metadata.Desc != "" {
		return d.Metadata.Desc
	}
	return d.Desc
}
