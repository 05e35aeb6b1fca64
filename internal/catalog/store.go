// Package catalog indexes the processed flight data directory and loads
// flight bundles (track plus radar sequence) for playback.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/models"
)

var (
	// ErrFlightNotFound is returned for flight IDs absent from the index.
	ErrFlightNotFound = errors.New("flight not found")

	// ErrFrameNotFound is returned for radar frame files that do not exist.
	ErrFrameNotFound = errors.New("radar frame not found")
)

// Store defines read access to the flight catalog.
type Store interface {
	List() []models.FlightInfo
	Get(id string) (models.FlightInfo, error)
	OpenTrack(id string) (io.ReadCloser, error)
	OpenRadarMeta(id string) (io.ReadCloser, error)
	FramePath(id, file string) (string, error)
	Reload() error
}

// LocalStore implements Store over the local data directory produced by the
// processing pipeline: a flights.json index plus one directory per flight.
// A missing index is tolerated by scanning for flight directories instead.
type LocalStore struct {
	mu      sync.RWMutex
	dataDir string
	flights []models.FlightInfo
	byID    map[string]models.FlightInfo
	lg      *logger.Logger
}

// NewLocalStore creates a store over dataDir and loads the index.
func NewLocalStore(dataDir string, lg *logger.Logger) (*LocalStore, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	s := &LocalStore{dataDir: abs, lg: lg}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads flights.json, falling back to a directory scan when the
// index is missing. Entries without an ID are skipped.
func (s *LocalStore) Reload() error {
	flights, err := s.readIndex()
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading flight index: %w", err)
		}
		s.lg.Infof("catalog: no flights.json in %s, scanning directories", s.dataDir)
		flights, err = s.scanDataDir()
		if err != nil {
			return fmt.Errorf("scanning data directory: %w", err)
		}
	}

	sort.Slice(flights, func(i, j int) bool { return flights[i].ID < flights[j].ID })
	byID := make(map[string]models.FlightInfo, len(flights))
	for _, f := range flights {
		byID[f.ID] = f
	}

	s.mu.Lock()
	s.flights = flights
	s.byID = byID
	s.mu.Unlock()

	s.lg.Infof("catalog: %d flights indexed", len(flights))
	return nil
}

func (s *LocalStore) readIndex() ([]models.FlightInfo, error) {
	f, err := os.Open(filepath.Join(s.dataDir, "flights.json"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []models.FlightInfo
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding flights.json: %w", err)
	}

	flights := make([]models.FlightInfo, 0, len(raw))
	for _, fi := range raw {
		if fi.ID == "" {
			continue
		}
		if fi.DisplayName == "" {
			fi.DisplayName = models.DisplayNameForID(fi.ID)
		}
		flights = append(flights, fi)
	}
	return flights, nil
}

// scanDataDir treats every subdirectory holding a flight_data.geojson as a
// flight, keyed by the directory name.
func (s *LocalStore) scanDataDir() ([]models.FlightInfo, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var flights []models.FlightInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		if _, err := os.Stat(filepath.Join(s.dataDir, id, "flight_data.geojson")); err != nil {
			continue
		}
		flights = append(flights, models.FlightInfo{
			ID:          id,
			DisplayName: models.DisplayNameForID(id),
			DataPath:    id + "/flight_data.geojson",
		})
	}
	return flights, nil
}

// List returns all indexed flights, sorted by ID.
func (s *LocalStore) List() []models.FlightInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FlightInfo, len(s.flights))
	copy(out, s.flights)
	return out
}

// Get looks up one flight by ID.
func (s *LocalStore) Get(id string) (models.FlightInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fi, ok := s.byID[id]
	if !ok {
		return models.FlightInfo{}, fmt.Errorf("%w: %s", ErrFlightNotFound, id)
	}
	return fi, nil
}

// OpenTrack opens the flight_data.geojson for a flight.
func (s *LocalStore) OpenTrack(id string) (io.ReadCloser, error) {
	fi, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	rel := fi.DataPath
	if rel == "" {
		rel = fi.ID + "/flight_data.geojson"
	}
	path, err := s.securePath(filepath.FromSlash(rel))
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// OpenRadarMeta opens the radar_meta.json for a flight.
func (s *LocalStore) OpenRadarMeta(id string) (io.ReadCloser, error) {
	fi, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	path, err := s.securePath(s.flightDir(fi), "radar_meta.json")
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// FramePath resolves the on-disk path of one radar frame image. The file
// name must be a bare name; anything resembling a path is rejected.
func (s *LocalStore) FramePath(id, file string) (string, error) {
	fi, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if file == "" || file != filepath.Base(file) || strings.HasPrefix(file, ".") {
		return "", fmt.Errorf("invalid frame file name: %q", file)
	}
	path, err := s.securePath(s.flightDir(fi), "radar_frames", file)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s/%s", ErrFrameNotFound, id, file)
		}
		return "", err
	}
	return path, nil
}

// flightDir returns the flight's directory relative to dataDir.
func (s *LocalStore) flightDir(fi models.FlightInfo) string {
	if fi.DataPath != "" {
		if dir := filepath.Dir(filepath.FromSlash(fi.DataPath)); dir != "." {
			return dir
		}
	}
	return fi.ID
}

// securePath joins parts under dataDir and rejects any result that escapes
// it.
func (s *LocalStore) securePath(parts ...string) (string, error) {
	path := filepath.Join(append([]string{s.dataDir}, parts...)...)
	rel, err := filepath.Rel(s.dataDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes data directory: %q", filepath.Join(parts...))
	}
	return path, nil
}
