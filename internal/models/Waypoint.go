package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// LatLon is a (lat, lon) pair, serialized as a two element JSON array.
type LatLon [2]float64

func (p LatLon) Lat() float64 { return p[0] }
func (p LatLon) Lon() float64 { return p[1] }

// Waypoint is a labeled geographic point.
// On the wire it is the array [lat, lon, label]; clients may omit the label.
type Waypoint struct {
	Lat   float64
	Lon   float64
	Label string
}

// Point drops the label.
func (w Waypoint) Point() LatLon {
	return LatLon{w.Lat, w.Lon}
}

// MarshalJSON writes the waypoint as [lat, lon, label].
func (w Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{w.Lat, w.Lon, w.Label})
}

// UnmarshalJSON accepts [lat, lon], [lat, lon, label] or an object
// with lat, lon (or lng) and an optional name or label.
func (w *Waypoint) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		return w.fromArray(raw)
	}

	var obj struct {
		Lat   *float64 `json:"lat"`
		Lon   *float64 `json:"lon"`
		Lng   *float64 `json:"lng"`
		Name  string   `json:"name"`
		Label string   `json:"label"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid waypoint %s: %w", string(data), err)
	}
	if obj.Lon == nil {
		obj.Lon = obj.Lng
	}
	if obj.Lat == nil || obj.Lon == nil {
		return errors.New("waypoint needs lat and lon")
	}
	w.Lat, w.Lon = *obj.Lat, *obj.Lon
	w.Label = obj.Label
	if w.Label == "" {
		w.Label = obj.Name
	}
	return nil
}

func (w *Waypoint) fromArray(raw []json.RawMessage) error {
	if len(raw) < 2 || len(raw) > 3 {
		return fmt.Errorf("waypoint needs 2 or 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &w.Lat); err != nil {
		return fmt.Errorf("invalid latitude: %w", err)
	}
	if err := json.Unmarshal(raw[1], &w.Lon); err != nil {
		return fmt.Errorf("invalid longitude: %w", err)
	}
	w.Label = ""
	if len(raw) == 3 {
		// labels that are not strings (null, numbers) are dropped
		_ = json.Unmarshal(raw[2], &w.Label)
	}
	return nil
}
