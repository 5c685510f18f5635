package geocoding

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Result is a geocoded place as served by the API.
type Result struct {
	Lat               float64           `json:"lat"`
	Lon               float64           `json:"lon"`
	DisplayName       string            `json:"displayName"`
	FullAddress       string            `json:"fullAddress"`
	Type              string            `json:"type"`
	Class             string            `json:"class"`
	Importance        float64           `json:"importance"`
	PlaceID           json.Number       `json:"placeId,omitempty"`
	AddressComponents AddressComponents `json:"addressComponents"`
}

// AddressComponents is the subset of the structured address the UI shows.
type AddressComponents struct {
	HouseNumber string `json:"houseNumber,omitempty"`
	Road        string `json:"road,omitempty"`
	Suburb      string `json:"suburb,omitempty"`
	City        string `json:"city,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// place is a Nominatim search or reverse entry.
type place struct {
	PlaceID     json.Number       `json:"place_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Type        string            `json:"type"`
	Class       string            `json:"class"`
	Importance  float64           `json:"importance"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

func (p place) result() (*Result, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude %q", p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude %q", p.Lon)
	}

	a := p.Address
	r := &Result{
		Lat:         lat,
		Lon:         lon,
		DisplayName: shortName(a),
		FullAddress: p.DisplayName,
		Type:        orUnknown(p.Type),
		Class:       orUnknown(p.Class),
		Importance:  p.Importance,
		PlaceID:     p.PlaceID,
		AddressComponents: AddressComponents{
			HouseNumber: a["house_number"],
			Road:        a["road"],
			Suburb:      a["suburb"],
			City:        firstOf(a, "city", "town", "village"),
			Postcode:    a["postcode"],
			Country:     a["country"],
			CountryCode: a["country_code"],
		},
	}
	if r.DisplayName == "" {
		r.DisplayName = p.DisplayName
	}
	return r, nil
}

// shortName joins street, district, locality and country into a compact label.
func shortName(a map[string]string) string {
	var parts []string
	switch {
	case a["house_number"] != "" && a["road"] != "":
		parts = append(parts, a["house_number"]+" "+a["road"])
	case a["road"] != "":
		parts = append(parts, a["road"])
	}
	if s := firstOf(a, "suburb", "neighbourhood"); s != "" {
		parts = append(parts, s)
	}
	if s := firstOf(a, "city", "town", "village"); s != "" {
		parts = append(parts, s)
	}
	if a["country"] != "" {
		parts = append(parts, a["country"])
	}
	return strings.Join(parts, ", ")
}

func firstOf(a map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := a[k]; v != "" {
			return v
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
