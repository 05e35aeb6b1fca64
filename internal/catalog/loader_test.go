package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudseed-visualizer/backend/internal/models"
)

func newTestLoader(t *testing.T, dataDir string) *Loader {
	t.Helper()
	s, err := NewLocalStore(dataDir, nil)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	l, err := NewLoader(s, 4, nil)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	return l
}

func TestLoaderLoadsBundle(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	l := newTestLoader(t, dataDir)

	b, err := l.Load("2021-02-12_17-42-10")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if b.Flight.ID != "2021-02-12_17-42-10" {
		t.Errorf("unexpected flight: %s", b.Flight.ID)
	}

	// The fixture lists points and frames out of order; bundles are sorted
	if b.Track.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", b.Track.Len())
	}
	first := b.Track.At(0)
	want := time.Date(2021, 2, 12, 17, 42, 10, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("expected earliest point first, got %v", first.Timestamp)
	}
	if first.Category != models.CategoryDefault {
		t.Errorf("expected Default category first, got %s", first.Category)
	}

	if b.Frames.Len() != 2 {
		t.Fatalf("expected 2 frames, got %d", b.Frames.Len())
	}
	if b.Frames.At(0).File != "radar_20210212_174000.png" {
		t.Errorf("expected earliest frame first, got %s", b.Frames.At(0).File)
	}

	if len(b.Path) != 2 {
		t.Errorf("expected path from LineString, got %d coordinates", len(b.Path))
	}
	if b.Bounds.South() != 36.35 || b.Bounds.East() != -118.84 {
		t.Errorf("unexpected bounds: %+v", b.Bounds)
	}
}

func TestLoaderCachesBundles(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	l := newTestLoader(t, dataDir)

	b1, err := l.Load("2021-02-12_17-42-10")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	b2, err := l.Load("2021-02-12_17-42-10")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b1 != b2 {
		t.Errorf("expected cached bundle to be reused")
	}
}

func TestLoaderInvalidate(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	l := newTestLoader(t, dataDir)

	b1, err := l.Load("2021-02-12_17-42-10")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	l.Invalidate()
	b2, err := l.Load("2021-02-12_17-42-10")
	if err != nil {
		t.Fatalf("Load after invalidate failed: %v", err)
	}
	if b1 == b2 {
		t.Errorf("expected a fresh bundle after invalidate")
	}
}

func TestLoaderUnknownFlight(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	l := newTestLoader(t, dataDir)

	if _, err := l.Load("2099-01-01_00-00-00"); !errors.Is(err, ErrFlightNotFound) {
		t.Errorf("expected ErrFlightNotFound, got %v", err)
	}
}

func TestLoaderSynthesizesPathWithoutLineString(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	// Replace the track with a points-only export
	pointsOnly := `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.6, 38.3]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:11Z", "seeding_type": "None", "seeding_count": 0}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-120.5, 38.2]},
      "properties": {"timestamp_iso": "2021-02-12T17:42:10Z", "seeding_type": "None", "seeding_count": 0}
    }
  ]
}`
	path := filepath.Join(dataDir, "2021-02-12_17-42-10", "flight_data.geojson")
	if err := os.WriteFile(path, []byte(pointsOnly), 0644); err != nil {
		t.Fatal(err)
	}

	l := newTestLoader(t, dataDir)
	b, err := l.Load("2021-02-12_17-42-10")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(b.Path) != 2 {
		t.Fatalf("expected synthesized path of 2, got %d", len(b.Path))
	}
	// Path follows timestamp order, not file order
	if b.Path[0].Lon() != -120.5 {
		t.Errorf("expected path to start at the earliest point, got %v", b.Path[0])
	}
}

func TestLoaderMalformedTrack(t *testing.T) {
	dataDir := t.TempDir()
	writeFlight(t, dataDir, "2021-02-12_17-42-10")
	path := filepath.Join(dataDir, "2021-02-12_17-42-10", "flight_data.geojson")
	if err := os.WriteFile(path, []byte("not geojson"), 0644); err != nil {
		t.Fatal(err)
	}

	l := newTestLoader(t, dataDir)
	if _, err := l.Load("2021-02-12_17-42-10"); err == nil {
		t.Fatalf("expected error for malformed track")
	}
}
