// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/session"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	store    catalog.Store
	sessions *session.Manager
	started  time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store catalog.Store, sessions *session.Manager) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		store:    store,
		sessions: sessions,
		started:  time.Now(),
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}
	if h.store != nil {
		resp["flights"] = len(h.store.List())
	}
	if h.sessions != nil {
		resp["activeSessions"] = h.sessions.Count()
	}
	return c.JSON(http.StatusOK, resp)
}
