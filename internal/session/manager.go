// Package session tracks live playback sessions: one playing flight per
// owning client connection.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/metrics"
	"github.com/cloudseed-visualizer/backend/internal/models"
	"github.com/cloudseed-visualizer/backend/internal/playback"
)

// FlightSession couples a loaded flight bundle with its playback
// controller. LastAccessed is maintained by the Manager for idle cleanup.
type FlightSession struct {
	ID           string
	Owner        string
	Flight       models.FlightInfo
	Bundle       *catalog.Bundle
	Controller   *playback.Controller
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Config wires a Manager's collaborators. Zero-value optional fields fall
// back to defaults.
type Config struct {
	Loader       *catalog.Loader
	Rules        *models.MarkerRules
	TickInterval time.Duration
	Ticker       playback.TickerFactory
	Metrics      *metrics.Collector
	Logger       *logger.Logger
}

// Manager owns all live playback sessions. An owner (one client
// connection) has at most one session: opening a new one tears the
// previous one down first.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*FlightSession
	byOwner  map[string]string

	loader   *catalog.Loader
	rules    *models.MarkerRules
	interval time.Duration
	ticker   playback.TickerFactory
	met      *metrics.Collector
	lg       *logger.Logger
}

// NewManager creates an empty manager.
func NewManager(cfg Config) *Manager {
	if cfg.Rules == nil {
		cfg.Rules = models.DefaultMarkerRules()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = playback.DefaultTickInterval
	}
	return &Manager{
		sessions: make(map[string]*FlightSession),
		byOwner:  make(map[string]string),
		loader:   cfg.Loader,
		rules:    cfg.Rules,
		interval: cfg.TickInterval,
		ticker:   cfg.Ticker,
		met:      cfg.Metrics,
		lg:       cfg.Logger,
	}
}

// Open loads a flight and starts a paused session for owner, replacing any
// session the owner already has. The prior session is cancelled before the
// new flight is fetched, so a failed load leaves the owner with no
// session.
func (m *Manager) Open(owner, flightID string, sink playback.Sink) (*FlightSession, error) {
	m.mu.Lock()
	if prev, ok := m.byOwner[owner]; ok {
		m.closeLocked(prev)
	}
	m.mu.Unlock()

	bundle, err := m.loader.Load(flightID)
	if err != nil {
		return nil, fmt.Errorf("loading flight %s: %w", flightID, err)
	}

	ctrl := playback.NewController(sink, playback.Options{
		Interval: m.interval,
		Rules:    m.rules,
		Ticker:   m.ticker,
		Logger:   m.lg,
	})
	if err := ctrl.LoadSession(bundle.Track, bundle.Frames); err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &FlightSession{
		ID:           uuid.New().String(),
		Owner:        owner,
		Flight:       bundle.Flight,
		Bundle:       bundle,
		Controller:   ctrl,
		CreatedAt:    now,
		LastAccessed: now,
	}

	m.mu.Lock()
	// The owner may have raced another Open; the later one wins.
	if prev, ok := m.byOwner[owner]; ok {
		m.closeLocked(prev)
	}
	m.sessions[sess.ID] = sess
	m.byOwner[owner] = sess.ID
	m.mu.Unlock()

	m.met.SessionOpened()
	m.lg.Infof("[Session %s] opened flight %s for owner %s (%d points, %d frames)",
		sess.ID[:8], flightID, owner[:min(8, len(owner))], bundle.Track.Len(), bundle.Frames.Len())
	return sess, nil
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*FlightSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Touch marks a session as recently used so idle cleanup keeps it.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return false
	}
	sess.LastAccessed = time.Now()
	return true
}

// Close tears down one session. Closing an unknown ID is a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(id)
}

// CloseOwner tears down the owner's session, if any.
func (m *Manager) CloseOwner(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byOwner[owner]; ok {
		m.closeLocked(id)
	}
}

// closeLocked resets the controller and drops the session. Callers hold
// m.mu.
func (m *Manager) closeLocked(id string) {
	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	sess.Controller.Reset()
	delete(m.sessions, id)
	if m.byOwner[sess.Owner] == id {
		delete(m.byOwner, sess.Owner)
	}
	m.met.SessionClosed()
	m.lg.Infof("[Session %s] closed", id[:8])
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdle closes sessions with no activity for maxAge and reports how
// many were closed. Clients keep their sessions alive by pinging.
func (m *Manager) CleanupIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	closed := 0
	for id, sess := range m.sessions {
		if sess.LastAccessed.After(cutoff) {
			continue
		}
		m.lg.Infof("[Session %s] idle for %s, cleaning up",
			id[:8], time.Since(sess.LastAccessed).Round(time.Second))
		m.closeLocked(id)
		closed++
	}
	return closed
}
