// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/metrics"
	"github.com/cloudseed-visualizer/backend/internal/models"
	"github.com/cloudseed-visualizer/backend/internal/session"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store          catalog.Store
	Loader         *catalog.Loader
	SessionMgr     *session.Manager
	Rules          *models.MarkerRules
	Metrics        *metrics.Collector
	Logger         *logger.Logger
	Version        string
	WSMaxReadBytes int64
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Flight  FlightHandler
	Catalog CatalogHandler
	WS      *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.Store, deps.SessionMgr),
		Flight:  NewFlightHandler(deps.Store, deps.Loader, deps.Logger),
		Catalog: NewCatalogHandler(deps.Store, deps.Loader, deps.Rules, deps.Metrics, deps.Logger),
		WS:      NewWebSocketHandler(deps.SessionMgr, deps.Rules, deps.Metrics, deps.Logger, deps.WSMaxReadBytes),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Flight catalog routes
	flightGroup := e.Group("/api/flights")
	flightGroup.GET("", handlers.Flight.HandleListFlights)
	flightGroup.GET("/:id", handlers.Flight.HandleGetFlight)
	flightGroup.GET("/:id/track", handlers.Flight.HandleGetTrack)
	flightGroup.GET("/:id/track/msgpack", handlers.Flight.HandleGetTrackMsgpack)
	flightGroup.GET("/:id/radar", handlers.Flight.HandleGetRadarMeta)
	flightGroup.GET("/:id/frames/:file", handlers.Flight.HandleGetRadarFrame)

	// Display rules and catalog maintenance
	e.GET("/api/rules/markers", handlers.Catalog.HandleGetMarkerRules)
	e.POST("/api/catalog/reload", handlers.Catalog.HandleReloadCatalog)

	// Playback control WebSocket
	e.GET("/api/playback/ws", handlers.WS.HandleWebSocket)
}
