package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/cloudseed-visualizer/backend/internal/models"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {
        "type": "LineString",
        "coordinates": [[-120.5, 38.2], [-120.6, 38.3], [-120.7, 38.4]]
      },
      "properties": {}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.5, 38.2]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:10Z", "seeding_type": "None", "seeding_count": 0}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.6, 38.3]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:11Z", "seeding_type": "BIP", "seeding_count": 2}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.7, 38.4]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:12Z", "seeding_type": "Eject", "seeding_count": 1}
    }
  ]
}`

func TestParseFlightTrack(t *testing.T) {
	track, parseErrs, err := ParseFlightTrack(strings.NewReader(sampleGeoJSON))
	if err != nil {
		t.Fatalf("ParseFlightTrack failed: %v", err)
	}
	if len(parseErrs) != 0 {
		t.Fatalf("expected no parse errors, got %v", parseErrs)
	}

	if len(track.Path) != 3 {
		t.Errorf("expected path of 3 coordinates, got %d", len(track.Path))
	}
	if len(track.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(track.Points))
	}

	p := track.Points[0]
	want := time.Date(2021, 2, 12, 17, 42, 10, 0, time.UTC)
	if !p.Timestamp.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, p.Timestamp)
	}
	if p.Longitude != -120.5 || p.Latitude != 38.2 {
		t.Errorf("expected coordinates (-120.5, 38.2), got (%v, %v)", p.Longitude, p.Latitude)
	}
	if p.Category != models.CategoryDefault {
		t.Errorf("expected seeding_type None to map to Default, got %s", p.Category)
	}
	if p.SeedingType != "None" {
		t.Errorf("expected raw seeding type None, got %s", p.SeedingType)
	}

	if track.Points[1].Category != models.CategoryBIP {
		t.Errorf("expected BIP, got %s", track.Points[1].Category)
	}
	if track.Points[1].SeedingCount != 2 {
		t.Errorf("expected seeding count 2, got %d", track.Points[1].SeedingCount)
	}
	if track.Points[2].Category != models.CategoryEject {
		t.Errorf("expected Eject, got %s", track.Points[2].Category)
	}
}

func TestParseFlightTrackSkipsBadFeatures(t *testing.T) {
	content := `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.5, 38.2]},
      "properties": {"timestamp_iso": "not-a-time", "seeding_type": "None", "seeding_count": 0}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.6, 38.3]},
      "properties": {"seeding_type": "None", "seeding_count": 0}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": []},
      "properties": {}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.7, 38.4]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:12Z", "seeding_type": "Generator", "seeding_count": 5}
    }
  ]
}`
	track, parseErrs, err := ParseFlightTrack(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseFlightTrack failed: %v", err)
	}

	if len(track.Points) != 1 {
		t.Fatalf("expected 1 valid point, got %d", len(track.Points))
	}
	if track.Points[0].Category != models.CategoryGenerator {
		t.Errorf("expected Generator, got %s", track.Points[0].Category)
	}
	if len(parseErrs) != 3 {
		t.Errorf("expected 3 parse errors, got %d: %v", len(parseErrs), parseErrs)
	}
}

func TestParseFlightTrackRejectsNonCollection(t *testing.T) {
	_, _, err := ParseFlightTrack(strings.NewReader(`{"type": "Feature"}`))
	if err == nil {
		t.Fatalf("expected error for non-FeatureCollection document")
	}
}

func TestParseFlightTrackUnknownSeedingType(t *testing.T) {
	content := `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.5, 38.2]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:10Z", "seeding_type": "Flare", "seeding_count": 0}
    }
  ]
}`
	track, _, err := ParseFlightTrack(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseFlightTrack failed: %v", err)
	}
	if track.Points[0].Category != models.CategoryDefault {
		t.Errorf("expected unknown seeding type to map to Default, got %s", track.Points[0].Category)
	}
	if track.Points[0].SeedingType != "Flare" {
		t.Errorf("expected raw value preserved, got %s", track.Points[0].SeedingType)
	}
}

func TestParseTimestampFormats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2021-02-12T17:42:10Z", time.Date(2021, 2, 12, 17, 42, 10, 0, time.UTC)},
		{"2021-02-12T17:42:10.500000Z", time.Date(2021, 2, 12, 17, 42, 10, 500000000, time.UTC)},
		{"2021-02-12T17:42:10", time.Date(2021, 2, 12, 17, 42, 10, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q): expected %v, got %v", tc.in, tc.want, got)
		}
	}

	if _, err := ParseTimestamp("12/02/2021 17:42"); err == nil {
		t.Errorf("expected error for unsupported format")
	}
}
