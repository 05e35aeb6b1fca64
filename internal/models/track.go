package models

import "time"

// SeedingCategory classifies the seeding activity at a track point.
type SeedingCategory string

const (
	CategoryDefault   SeedingCategory = "Default"
	CategoryBIP       SeedingCategory = "BIP"
	CategoryEject     SeedingCategory = "Eject"
	CategoryGenerator SeedingCategory = "Generator"
)

// CategoryFromSeedingType maps a raw seeding_type property to a known
// category. Unknown or empty values map to CategoryDefault.
func CategoryFromSeedingType(raw string) SeedingCategory {
	switch SeedingCategory(raw) {
	case CategoryBIP, CategoryEject, CategoryGenerator:
		return SeedingCategory(raw)
	default:
		return CategoryDefault
	}
}

// LonLat is a [longitude, latitude] pair, GeoJSON coordinate order.
type LonLat [2]float64

// Lon returns the longitude component.
func (p LonLat) Lon() float64 { return p[0] }

// Lat returns the latitude component.
func (p LonLat) Lat() float64 { return p[1] }

// TrackPoint is a single timestamped GPS sample of a flight, with the
// seeding activity recorded at that moment.
type TrackPoint struct {
	Timestamp    time.Time       `json:"timestamp"`
	Longitude    float64         `json:"longitude"`
	Latitude     float64         `json:"latitude"`
	Category     SeedingCategory `json:"category"`
	SeedingType  string          `json:"seedingType"` // raw value as read, e.g. "None"
	SeedingCount int             `json:"seedingCount"`
}

// Time reports the sample timestamp.
func (p TrackPoint) Time() time.Time { return p.Timestamp }

// FlightTrack is the decoded flight_data.geojson payload: the ordered GPS
// samples plus the full path polyline for map display.
type FlightTrack struct {
	FlightID string       `json:"flightId"`
	Points   []TrackPoint `json:"points"`
	Path     []LonLat     `json:"path"`
}

// ParseError describes one feature that could not be decoded. Decoding
// continues past these; they are reported so bad exports are visible.
type ParseError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}
