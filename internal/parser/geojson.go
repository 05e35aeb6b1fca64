// Package parser decodes the processed flight data files: the GeoJSON
// flight track, the radar frame index, and optional marker color rules.
package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cloudseed-visualizer/backend/internal/models"
)

// Wire structures for flight_data.geojson. The file is a FeatureCollection
// holding one LineString (the full path) followed by one Point per GPS
// sample.
type geoFeatureCollection struct {
	Type     string       `json:"type"`
	Features []geoFeature `json:"features"`
}

type geoFeature struct {
	Type       string        `json:"type"`
	Geometry   geoGeometry   `json:"geometry"`
	Properties geoProperties `json:"properties"`
}

type geoGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoProperties struct {
	TimestampISO string   `json:"timestamp_iso"`
	SeedingType  string   `json:"seeding_type"`
	SeedingCount *float64 `json:"seeding_count"`
}

// ParseFlightTrack decodes a flight_data.geojson stream. Features that
// cannot be decoded are skipped and reported as ParseErrors; only a
// malformed top-level document is a hard error.
func ParseFlightTrack(r io.Reader) (*models.FlightTrack, []models.ParseError, error) {
	var fc geoFeatureCollection
	dec := json.NewDecoder(r)
	if err := dec.Decode(&fc); err != nil {
		return nil, nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	track := &models.FlightTrack{}
	var parseErrors []models.ParseError

	fail := func(i int, format string, args ...any) {
		parseErrors = append(parseErrors, models.ParseError{
			Index:  i,
			Reason: fmt.Sprintf(format, args...),
		})
	}

	for i, f := range fc.Features {
		switch f.Geometry.Type {
		case "LineString":
			var coords []models.LonLat
			if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
				fail(i, "bad LineString coordinates: %v", err)
				continue
			}
			track.Path = coords

		case "Point":
			var coord models.LonLat
			if err := json.Unmarshal(f.Geometry.Coordinates, &coord); err != nil {
				fail(i, "bad Point coordinates: %v", err)
				continue
			}
			if f.Properties.TimestampISO == "" {
				fail(i, "point has no timestamp_iso")
				continue
			}
			ts, err := ParseTimestamp(f.Properties.TimestampISO)
			if err != nil {
				fail(i, "bad timestamp_iso %q: %v", f.Properties.TimestampISO, err)
				continue
			}
			count := 0
			if f.Properties.SeedingCount != nil {
				count = int(*f.Properties.SeedingCount)
			}
			track.Points = append(track.Points, models.TrackPoint{
				Timestamp:    ts,
				Longitude:    coord.Lon(),
				Latitude:     coord.Lat(),
				Category:     models.CategoryFromSeedingType(f.Properties.SeedingType),
				SeedingType:  f.Properties.SeedingType,
				SeedingCount: count,
			})

		default:
			fail(i, "unsupported geometry type %q", f.Geometry.Type)
		}
	}

	return track, parseErrors, nil
}

// ParseTimestamp accepts the pipeline's timestamp format: ISO 8601 with a
// trailing Z. Exports written without the zone suffix are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
}
