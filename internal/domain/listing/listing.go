// Package listing models the property records served by the preview and details endpoints.
package listing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMissingID is returned for records without an id.
var ErrMissingID = errors.New("listing record has no id")

// DefaultCoordinates is used when a record carries no usable coordinates (Los Angeles).
var DefaultCoordinates = Coordinates{Latitude: 34.0522, Longitude: -118.2437}

// Location is the address part of a record.
type Location struct {
	City  string `json:"city"`
	State string `json:"state"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Listing is a read-only property record owned by the listing store.
// Fields the service does not interpret are preserved and written back verbatim.
type Listing struct {
	id           string
	propertyName string
	location     Location
	coordinates  *Coordinates
	rent         json.RawMessage
	beds         json.RawMessage
	baths        json.RawMessage
	sqft         json.RawMessage
	photos       []PhotoRef
	photosSet    bool
	raw          map[string]json.RawMessage
}

// Parse decodes a single JSON record. The record must be an object with a non-empty id.
func Parse(data []byte) (Listing, error) {
	return ParseKeyed("", data)
}

// ParseKeyed decodes a record stored under key. The key becomes the id
// when the record carries none.
func ParseKeyed(key string, data []byte) (Listing, error) {
	var l Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return Listing{}, err
	}
	if l.id == "" {
		l.id = key
	}
	if l.id == "" {
		return Listing{}, ErrMissingID
	}
	return l, nil
}

// ID returns the listing identifier.
func (l Listing) ID() string { return l.id }

// Coordinates returns the stored coordinates or DefaultCoordinates.
func (l Listing) Coordinates() Coordinates {
	if l.coordinates == nil {
		return DefaultCoordinates
	}
	return *l.coordinates
}

// Photos returns the stored photo sequence.
func (l Listing) Photos() []PhotoRef { return l.photos }

// WithPhotos returns a copy whose photo sequence is replaced. The receiver is not modified.
func (l Listing) WithPhotos(photos []PhotoRef) Listing {
	cp := l
	cp.photos = append([]PhotoRef(nil), photos...)
	cp.photosSet = true
	return cp
}

// UnmarshalJSON decodes the known fields and keeps every field for write-back.
func (l *Listing) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode listing: %w", err)
	}

	out := Listing{raw: raw}
	out.id = decodeID(raw["id"])

	if v, ok := raw["propertyName"]; ok {
		_ = json.Unmarshal(v, &out.propertyName)
	}
	if v, ok := raw["location"]; ok {
		_ = json.Unmarshal(v, &out.location)
	}
	out.coordinates = decodeCoordinates(raw["coordinates"])
	out.rent = nonNull(raw["rent"])
	out.beds = nonNull(raw["beds"])
	out.baths = nonNull(raw["baths"])
	out.sqft = nonNull(raw["sqft"])
	if v, ok := raw["photos"]; ok {
		var photos []PhotoRef
		if err := json.Unmarshal(v, &photos); err == nil {
			out.photos = photos
		}
	}

	*l = out
	return nil
}

// MarshalJSON writes the stored record, with the photo sequence replaced when WithPhotos was used.
func (l Listing) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.raw)+1)
	for k, v := range l.raw {
		out[k] = v
	}
	if _, ok := out["id"]; !ok {
		out["id"] = l.id
	}
	if l.photosSet {
		out["photos"] = l.photos
	}
	return json.Marshal(out)
}

func decodeID(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func decodeCoordinates(v json.RawMessage) *Coordinates {
	if len(v) == 0 {
		return nil
	}
	var c struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(v, &c); err != nil || c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

func nonNull(v json.RawMessage) json.RawMessage {
	if len(v) == 0 || string(bytes.TrimSpace(v)) == "null" {
		return nil
	}
	return v
}
