package catalog

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const fixtureGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "LineString", "coordinates": [[-120.5, 38.2], [-120.6, 38.3]]},
      "properties": {}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.6, 38.3]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:11Z", "seeding_type": "BIP", "seeding_count": 1}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.5, 38.2]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:10Z", "seeding_type": "None", "seeding_count": 0}
    }
  ]
}`

const fixtureRadarMeta = `{
  "bounds": [[36.35, -123.78], [41.0, -118.84]],
  "frames": [
    {"time": "2021-02-12T17:50:00Z", "file": "radar_20210212_175000.png"},
    {"time": "2021-02-12T17:40:00Z", "file": "radar_20210212_174000.png"}
  ]
}`

// writeFlight lays out one flight directory the way the processing
// pipeline does.
func writeFlight(t *testing.T, dataDir, id string) {
	t.Helper()
	dir := filepath.Join(dataDir, id)
	if err := os.MkdirAll(filepath.Join(dir, "radar_frames"), 0755); err != nil {
		t.Fatal(err)
	}
	write := func(rel, content string) {
		if err := os.WriteFile(filepath.Join(dir, rel), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("flight_data.geojson", fixtureGeoJSON)
	write("radar_meta.json", fixtureRadarMeta)
	write(filepath.Join("radar_frames", "radar_20210212_174000.png"), "png-bytes")
	write(filepath.Join("radar_frames", "radar_20210212_175000.png"), "png-bytes")
}

func writeIndex(t *testing.T, dataDir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dataDir, "flights.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLocalStoreReadsIndex(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	writeFlight(t, dataDir, "2021-03-01_09-15-00")
	writeIndex(t, dataDir, `[
  {"id": "2021-03-01_09-15-00", "displayName": "Flight from 2021-03-01 at 09-15-00", "dataPath": "2021-03-01_09-15-00/flight_data.geojson"},
  {"id": "2021-02-12_17-42-10", "dataPath": "2021-02-12_17-42-10/flight_data.geojson"},
  {"id": "", "dataPath": "ignored"}
]`)

	s, err := NewLocalStore(dataDir, nil)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	flights := s.List()
	if len(flights) != 2 {
		t.Fatalf("expected 2 flights, got %d", len(flights))
	}
	// Sorted by ID
	if flights[0].ID != "2021-02-12_17-42-10" {
		t.Errorf("expected sorted order, got %s first", flights[0].ID)
	}
	// Missing display name gets derived
	if flights[0].DisplayName != "Flight from 2021-02-12 at 17-42-10" {
		t.Errorf("unexpected derived display name: %s", flights[0].DisplayName)
	}

	if _, err := s.Get("2021-03-01_09-15-00"); err != nil {
		t.Errorf("Get failed: %v", err)
	}
	if _, err := s.Get("2099-01-01_00-00-00"); !errors.Is(err, ErrFlightNotFound) {
		t.Errorf("expected ErrFlightNotFound, got %v", err)
	}
}

func TestLocalStoreScansWithoutIndex(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	// A directory without flight data is not a flight
	if err := os.MkdirAll(filepath.Join(dataDir, "radar_cache"), 0755); err != nil {
		t.Fatal(err)
	}

	s, err := NewLocalStore(dataDir, nil)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	flights := s.List()
	if len(flights) != 1 {
		t.Fatalf("expected 1 flight from scan, got %d", len(flights))
	}
	if flights[0].DisplayName != "Flight from 2021-02-12 at 17-42-10" {
		t.Errorf("unexpected display name: %s", flights[0].DisplayName)
	}
}

func TestLocalStoreMissingDataDir(t *testing.T) {
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("expected empty catalog for missing directory, got %v", err)
	}
	if len(s.List()) != 0 {
		t.Errorf("expected no flights, got %d", len(s.List()))
	}
}

func TestLocalStoreReloadPicksUpNewFlights(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")

	s, err := NewLocalStore(dataDir, nil)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if len(s.List()) != 1 {
		t.Fatalf("expected 1 flight, got %d", len(s.List()))
	}

	writeFlight(t, dataDir, "2021-03-01_09-15-00")
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(s.List()) != 2 {
		t.Errorf("expected 2 flights after reload, got %d", len(s.List()))
	}
}

func TestLocalStoreOpenTrack(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")

	s, err := NewLocalStore(dataDir, nil)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	rc, err := s.OpenTrack("2021-02-12_17-42-10")
	if err != nil {
		t.Fatalf("OpenTrack failed: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != fixtureGeoJSON {
		t.Errorf("track content mismatch")
	}
}

func TestLocalStoreFramePath(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")

	s, err := NewLocalStore(dataDir, nil)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	path, err := s.FramePath("2021-02-12_17-42-10", "radar_20210212_174000.png")
	if err != nil {
		t.Fatalf("FramePath failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("returned path does not exist: %v", err)
	}

	if _, err := s.FramePath("2021-02-12_17-42-10", "radar_19990101_000000.png"); !errors.Is(err, ErrFrameNotFound) {
		t.Errorf("expected ErrFrameNotFound, got %v", err)
	}

	for _, bad := range []string{"../flight_data.geojson", "sub/frame.png", "..", ".hidden.png", ""} {
		if _, err := s.FramePath("2021-02-12_17-42-10", bad); err == nil {
			t.Errorf("expected rejection of frame name %q", bad)
		}
	}
}
