package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/cloudseed-visualizer/backend/internal/playback"
)

// ManualTicker is a playback.Ticker driven by the test instead of the wall
// clock. The channel is buffered so ticking a cancelled run never blocks.
type ManualTicker struct {
	ch chan time.Time
}

// NewManualTicker returns a ticker that fires only on Tick.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time, 16)}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }
func (m *ManualTicker) Stop()               {}

// Tick delivers one tick.
func (m *ManualTicker) Tick() { m.ch <- time.Now() }

// TickerRecorder is a playback.TickerFactory that remembers every ticker
// it created, so tests can tick a specific play run.
type TickerRecorder struct {
	mu   sync.Mutex
	made []*ManualTicker
}

// Factory is the playback.TickerFactory to install on the unit under test.
func (r *TickerRecorder) Factory(time.Duration) playback.Ticker {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk := NewManualTicker()
	r.made = append(r.made, tk)
	return tk
}

// Count reports how many play runs requested a ticker.
func (r *TickerRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.made)
}

// Last returns the most recently created ticker.
func (r *TickerRecorder) Last() *ManualTicker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.made[len(r.made)-1]
}

// RecordingSink collects position updates and signals their arrival.
type RecordingSink struct {
	mu      sync.Mutex
	updates []playback.Update
	arrived chan playback.Update
}

// NewRecordingSink returns an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{arrived: make(chan playback.Update, 64)}
}

func (s *RecordingSink) PositionChanged(u playback.Update) {
	s.mu.Lock()
	s.updates = append(s.updates, u)
	s.mu.Unlock()
	s.arrived <- u
}

// WaitUpdate blocks until the next update arrives or the test times out.
func (s *RecordingSink) WaitUpdate(t testing.TB) playback.Update {
	t.Helper()
	select {
	case u := <-s.arrived:
		return u
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a position update")
		return playback.Update{}
	}
}

// Count reports how many updates arrived.
func (s *RecordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

// Last returns the most recent update.
func (s *RecordingSink) Last() playback.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[len(s.updates)-1]
}
