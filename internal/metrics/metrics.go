// Package metrics exposes Prometheus instrumentation for the server. All
// helper methods tolerate a nil *Collector so instrumentation can be
// switched off in config.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the server's metrics on one registry.
type Collector struct {
	registry *prometheus.Registry

	activeSessions  prometheus.Gauge
	sessionsOpened  prometheus.Counter
	positionUpdates prometheus.Counter
	frameSwaps      prometheus.Counter
	wsConnections   prometheus.Gauge
	catalogReloads  prometheus.Counter
	httpRequests    *prometheus.CounterVec
}

// New registers the server metrics on a fresh registry.
func New() (*Collector, error) {
	reg := prometheus.NewRegistry()
	c := &Collector{registry: reg}
	var err error

	if c.activeSessions, err = registerGauge(reg, prometheus.GaugeOpts{
		Name: "playback_active_sessions",
		Help: "Playback sessions currently open.",
	}); err != nil {
		return nil, err
	}
	if c.sessionsOpened, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "playback_sessions_opened_total",
		Help: "Playback sessions opened since start.",
	}); err != nil {
		return nil, err
	}
	if c.positionUpdates, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "playback_position_updates_total",
		Help: "Position updates emitted to clients.",
	}); err != nil {
		return nil, err
	}
	if c.frameSwaps, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "playback_frame_swaps_total",
		Help: "Position updates that changed the radar frame.",
	}); err != nil {
		return nil, err
	}
	if c.wsConnections, err = registerGauge(reg, prometheus.GaugeOpts{
		Name: "websocket_connections",
		Help: "WebSocket clients currently connected.",
	}); err != nil {
		return nil, err
	}
	if c.catalogReloads, err = registerCounter(reg, prometheus.CounterOpts{
		Name: "catalog_reloads_total",
		Help: "Catalog reloads, manual or watcher-triggered.",
	}); err != nil {
		return nil, err
	}
	if c.httpRequests, err = registerCounterVec(reg, prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"}); err != nil {
		return nil, err
	}

	return c, nil
}

func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts) (prometheus.Counter, error) {
	c := prometheus.NewCounter(opts)
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Counter), nil
		}
		return nil, err
	}
	return c, nil
}

func registerGauge(reg prometheus.Registerer, opts prometheus.GaugeOpts) (prometheus.Gauge, error) {
	g := prometheus.NewGauge(opts)
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(prometheus.Gauge), nil
		}
		return nil, err
	}
	return g, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	v := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(v); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return v, nil
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// statusCoder matches error types that carry their own HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Middleware counts every request by method, route template and status.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			err := next(ctx)
			if c == nil {
				return err
			}

			status := ctx.Response().Status
			if err != nil {
				switch e := err.(type) {
				case *echo.HTTPError:
					status = e.Code
				case statusCoder:
					status = e.StatusCode()
				default:
					status = http.StatusInternalServerError
				}
			}
			route := ctx.Path()
			if route == "" {
				route = ctx.Request().URL.Path
			}
			c.httpRequests.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

// SessionOpened records a new playback session.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsOpened.Inc()
	c.activeSessions.Inc()
}

// SessionClosed records a session teardown.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}

// PositionUpdate records one emitted update and whether it swapped the
// radar frame.
func (c *Collector) PositionUpdate(frameChanged bool) {
	if c == nil {
		return
	}
	c.positionUpdates.Inc()
	if frameChanged {
		c.frameSwaps.Inc()
	}
}

// WSConnected records a client connect.
func (c *Collector) WSConnected() {
	if c == nil {
		return
	}
	c.wsConnections.Inc()
}

// WSDisconnected records a client disconnect.
func (c *Collector) WSDisconnected() {
	if c == nil {
		return
	}
	c.wsConnections.Dec()
}

// CatalogReloaded records a catalog reload.
func (c *Collector) CatalogReloaded() {
	if c == nil {
		return
	}
	c.catalogReloads.Inc()
}
