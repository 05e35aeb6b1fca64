package playback

import "time"

// Ticker is a recurring tick source driving automatic playback. Production
// code uses the wall-clock implementation; tests drive ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds the Ticker for one play run.
type TickerFactory func(d time.Duration) Ticker

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

// NewWallTicker returns a Ticker backed by time.Ticker.
func NewWallTicker(d time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(d)}
}
