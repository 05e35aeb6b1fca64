package catalog

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/models"
	"github.com/cloudseed-visualizer/backend/internal/parser"
	"github.com/cloudseed-visualizer/backend/internal/series"
)

// Bundle is a fully parsed flight ready for playback: both series sorted,
// the path polyline, and the radar overlay bounds.
type Bundle struct {
	Flight models.FlightInfo
	Track  *series.Series[models.TrackPoint]
	Path   []models.LonLat
	Frames *series.Series[models.RadarFrame]
	Bounds models.LatLngBounds
}

// Loader parses flight bundles on demand and keeps the most recently used
// ones in memory. Bundles are immutable, so a cached bundle is shared
// between sessions.
type Loader struct {
	store Store
	cache *lru.Cache[string, *Bundle]
	lg    *logger.Logger
}

// NewLoader creates a loader over store caching up to cacheSize bundles.
func NewLoader(store Store, cacheSize int, lg *logger.Logger) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = 8
	}
	cache, err := lru.New[string, *Bundle](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating bundle cache: %w", err)
	}
	return &Loader{store: store, cache: cache, lg: lg}, nil
}

// Load returns the bundle for a flight, parsing it on a cache miss.
func (l *Loader) Load(id string) (*Bundle, error) {
	if b, ok := l.cache.Get(id); ok {
		return b, nil
	}

	fi, err := l.store.Get(id)
	if err != nil {
		return nil, err
	}

	tr, err := l.store.OpenTrack(id)
	if err != nil {
		return nil, fmt.Errorf("opening track for %s: %w", id, err)
	}
	track, trackErrs, err := parser.ParseFlightTrack(tr)
	tr.Close()
	if err != nil {
		return nil, fmt.Errorf("parsing track for %s: %w", id, err)
	}
	if len(trackErrs) > 0 {
		l.lg.Warnf("[Flight %s] skipped %d bad track features", id, len(trackErrs))
	}

	rr, err := l.store.OpenRadarMeta(id)
	if err != nil {
		return nil, fmt.Errorf("opening radar meta for %s: %w", id, err)
	}
	meta, frameErrs, err := parser.ParseRadarMeta(rr)
	rr.Close()
	if err != nil {
		return nil, fmt.Errorf("parsing radar meta for %s: %w", id, err)
	}
	if len(frameErrs) > 0 {
		l.lg.Warnf("[Flight %s] skipped %d bad radar frames", id, len(frameErrs))
	}

	sorted := series.New(track.Points)
	path := track.Path
	if len(path) == 0 {
		// Older exports had no LineString; rebuild the polyline from the
		// sorted points.
		path = make([]models.LonLat, sorted.Len())
		for i, p := range sorted.Items() {
			path[i] = models.LonLat{p.Longitude, p.Latitude}
		}
	}

	b := &Bundle{
		Flight: fi,
		Track:  sorted,
		Path:   path,
		Frames: series.New(meta.Frames),
		Bounds: meta.Bounds,
	}
	l.cache.Add(id, b)
	l.lg.Infof("[Flight %s] loaded: %d points, %d frames", id, b.Track.Len(), b.Frames.Len())
	return b, nil
}

// Invalidate drops all cached bundles. The next Load re-reads from disk.
func (l *Loader) Invalidate() {
	l.cache.Purge()
}
