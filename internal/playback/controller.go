// Package playback owns the playback state machine: a position in the
// flight track advanced by a tick source, with the matching radar frame
// resolved on every position change.
package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/models"
	"github.com/cloudseed-visualizer/backend/internal/series"
)

// State is the controller's lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StatePaused  State = "paused"
	StatePlaying State = "playing"
)

// DefaultTickInterval advances playback at 20 positions per second.
const DefaultTickInterval = 50 * time.Millisecond

var (
	// ErrEmptySeries rejects a session whose track or radar sequence has
	// no samples.
	ErrEmptySeries = errors.New("playback: track or radar series is empty")

	// ErrNoSession is returned by transport controls before a session is
	// loaded.
	ErrNoSession = errors.New("playback: no session loaded")
)

// Update describes one position change: the active track point, its marker
// color, and the radar frame in effect at that moment. FrameChanged is
// false when the frame is the one already displayed, so consumers can skip
// redundant swaps.
type Update struct {
	Index        int
	Total        int
	Point        models.TrackPoint
	Color        string
	Frame        models.RadarFrame
	FrameIndex   int
	FrameChanged bool
}

// Sink receives position updates. It is invoked with the controller's
// lock held, so updates arrive strictly in order; implementations must not
// call back into the controller.
type Sink interface {
	PositionChanged(u Update)
}

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	Interval time.Duration
	Rules    *models.MarkerRules
	Ticker   TickerFactory
	Logger   *logger.Logger
}

// Controller steps a position through the track series and resolves the
// radar frame for each position. All methods are safe for concurrent use.
//
// Cancellation is synchronous: Pause, Seek, Reset and LoadSession bump a
// generation counter under the lock, so a tick already in flight when they
// return is guaranteed to change nothing.
type Controller struct {
	mu        sync.Mutex
	state     State
	interval  time.Duration
	newTicker TickerFactory
	rules     *models.MarkerRules
	sink      Sink
	lg        *logger.Logger

	track     *series.Series[models.TrackPoint]
	frames    *series.Series[models.RadarFrame]
	resolver  *series.Resolver[models.RadarFrame]
	pos       int
	lastFrame int
	gen       int
	stop      chan struct{}
}

// NewController returns a stopped controller that reports position changes
// to sink.
func NewController(sink Sink, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultTickInterval
	}
	if opts.Ticker == nil {
		opts.Ticker = NewWallTicker
	}
	if opts.Rules == nil {
		opts.Rules = models.DefaultMarkerRules()
	}
	return &Controller{
		state:     StateStopped,
		interval:  opts.Interval,
		newTicker: opts.Ticker,
		rules:     opts.Rules,
		sink:      sink,
		lg:        opts.Logger,
		lastFrame: -1,
	}
}

// LoadSession installs a new track and radar frame sequence, cancels any
// running playback, and pauses at position 0. The initial position is
// emitted immediately so the first point and frame appear without waiting
// for a transport command. Loading fails with ErrEmptySeries if either
// series is empty, leaving the previous state untouched.
func (c *Controller) LoadSession(track *series.Series[models.TrackPoint], frames *series.Series[models.RadarFrame]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if track == nil || track.Len() == 0 || frames == nil || frames.Len() == 0 {
		return ErrEmptySeries
	}

	c.cancelLocked()
	c.track = track
	c.frames = frames
	c.resolver = series.NewResolver(frames)
	c.pos = 0
	c.lastFrame = -1
	c.state = StatePaused
	c.emitLocked()
	return nil
}

// Play starts advancing the position once per tick interval. Playing past
// the last position wraps to 0 and continues. Play is a no-op while
// already playing and fails with ErrNoSession before a session is loaded.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateStopped:
		return ErrNoSession
	case StatePlaying:
		return nil
	}

	c.state = StatePlaying
	gen := c.gen
	stop := make(chan struct{})
	c.stop = stop
	go c.run(c.newTicker(c.interval), stop, gen)
	c.lg.Debugf("playback: play at index %d/%d", c.pos, c.track.Len())
	return nil
}

// Pause halts automatic advance, keeping the current position. Pausing
// while already paused is a no-op; pausing with no session loaded fails
// with ErrNoSession.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateStopped:
		return ErrNoSession
	case StatePaused:
		return nil
	}

	c.cancelLocked()
	c.state = StatePaused
	c.lg.Debugf("playback: paused at index %d", c.pos)
	return nil
}

// Seek pauses playback and jumps to the given track index, clamped to the
// valid range. The new position is emitted immediately.
func (c *Controller) Seek(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return ErrNoSession
	}

	if c.state == StatePlaying {
		c.cancelLocked()
	}
	c.state = StatePaused

	if index < 0 {
		index = 0
	}
	if max := c.track.Len() - 1; index > max {
		index = max
	}
	c.pos = index
	c.emitLocked()
	return nil
}

// Reset cancels playback and discards the loaded session, returning the
// controller to Stopped. Reset is idempotent.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked()
	c.state = StateStopped
	c.track = nil
	c.frames = nil
	c.resolver = nil
	c.pos = 0
	c.lastFrame = -1
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position reports the current track index.
func (c *Controller) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// run forwards ticks until the stop channel closes. The ticker is stopped
// on the way out.
func (c *Controller) run(tk Ticker, stop <-chan struct{}, gen int) {
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			c.step(gen)
		}
	}
}

// step advances one position. Ticks from a cancelled run carry a stale
// generation and change nothing.
func (c *Controller) step(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != StatePlaying {
		return
	}

	c.pos++
	if c.pos >= c.track.Len() {
		c.pos = 0
	}
	c.emitLocked()
}

// cancelLocked invalidates the running play goroutine. Callers hold c.mu.
func (c *Controller) cancelLocked() {
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// emitLocked resolves the frame for the current position and notifies the
// sink. Callers hold c.mu.
func (c *Controller) emitLocked() {
	pt := c.track.At(c.pos)
	frame, fi := c.resolver.Resolve(pt.Timestamp)
	changed := fi != c.lastFrame
	c.lastFrame = fi

	if c.sink == nil {
		return
	}
	c.sink.PositionChanged(Update{
		Index:        c.pos,
		Total:        c.track.Len(),
		Point:        pt,
		Color:        c.rules.ColorFor(pt.Category),
		Frame:        frame,
		FrameIndex:   fi,
		FrameChanged: changed,
	})
}
