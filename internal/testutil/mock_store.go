// Package testutil provides shared fakes and fixtures for tests: an
// in-memory flight store, hand-driven tick sources, and a recording
// playback sink.
package testutil

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/models"
)

// MockStore implements catalog.Store from in-memory documents.
type MockStore struct {
	mu          sync.Mutex
	flights     []models.FlightInfo
	tracks      map[string]string
	radars      map[string]string
	framePaths  map[string]string
	reloadCount int
}

// NewMockStore returns an empty store.
func NewMockStore() *MockStore {
	return &MockStore{
		tracks:     make(map[string]string),
		radars:     make(map[string]string),
		framePaths: make(map[string]string),
	}
}

// AddFlight registers a flight with the given raw track and radar meta
// documents.
func (s *MockStore) AddFlight(id, track, radarMeta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights = append(s.flights, models.FlightInfo{
		ID:          id,
		DisplayName: models.DisplayNameForID(id),
		DataPath:    id + "/flight_data.geojson",
	})
	s.tracks[id] = track
	s.radars[id] = radarMeta
}

// AddFrame registers an on-disk path for one radar frame image.
func (s *MockStore) AddFrame(id, file, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framePaths[id+"/"+file] = path
}

// ReloadCount reports how many times Reload was called.
func (s *MockStore) ReloadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadCount
}

func (s *MockStore) List() []models.FlightInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FlightInfo, len(s.flights))
	copy(out, s.flights)
	return out
}

func (s *MockStore) Get(id string) (models.FlightInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.flights {
		if f.ID == id {
			return f, nil
		}
	}
	return models.FlightInfo{}, fmt.Errorf("%w: %s", catalog.ErrFlightNotFound, id)
}

func (s *MockStore) OpenTrack(id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrFlightNotFound, id)
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func (s *MockStore) OpenRadarMeta(id string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.radars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrFlightNotFound, id)
	}
	return io.NopCloser(strings.NewReader(doc)), nil
}

func (s *MockStore) FramePath(id, file string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path, ok := s.framePaths[id+"/"+file]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s/%s", catalog.ErrFrameNotFound, id, file)
}

func (s *MockStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadCount++
	return nil
}

// GeoJSONTrack builds a flight_data.geojson document with n points spaced
// stepSec apart, starting at start. The second point (when present) is a
// BIP seeding point; all others carry no seeding.
func GeoJSONTrack(start time.Time, n, stepSec int) string {
	var sb strings.Builder
	sb.WriteString(`{"type": "FeatureCollection", "features": [`)

	sb.WriteString(`{"type": "Feature", "geometry": {"type": "LineString", "coordinates": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "[%g, %g]", -120.5-0.01*float64(i), 38.2+0.01*float64(i))
	}
	sb.WriteString(`]}, "properties": {}}`)

	for i := 0; i < n; i++ {
		seedingType, count := "None", 0
		if i == 1 {
			seedingType, count = "BIP", 1
		}
		ts := start.Add(time.Duration(i*stepSec) * time.Second).UTC().Format("2006-01-02T15:04:05Z")
		fmt.Fprintf(&sb,
			`, {"type": "Feature", "geometry": {"type": "Point", "coordinates": [%g, %g]}, "properties": {"timestamp_iso": "%s", "seeding_type": "%s", "seeding_count": %d}}`,
			-120.5-0.01*float64(i), 38.2+0.01*float64(i), ts, seedingType, count)
	}

	sb.WriteString(`]}`)
	return sb.String()
}

// EmptyGeoJSONTrack is a FeatureCollection with no point features.
func EmptyGeoJSONTrack() string {
	return `{"type": "FeatureCollection", "features": []}`
}

// RadarMetaJSON builds a radar_meta.json document with n frames spaced
// stepSec apart, starting at start.
func RadarMetaJSON(start time.Time, n, stepSec int) string {
	var sb strings.Builder
	sb.WriteString(`{"bounds": [[36.35, -123.78], [41.0, -118.84]], "frames": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		ts := start.Add(time.Duration(i*stepSec) * time.Second).UTC()
		fmt.Fprintf(&sb, `{"time": "%s", "file": "radar_%s.png"}`,
			ts.Format("2006-01-02T15:04:05Z"), ts.Format("20060102_150405"))
	}
	sb.WriteString(`]}`)
	return sb.String()
}
