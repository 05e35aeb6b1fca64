// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// FlightHandler handles flight catalog and per-flight data operations
type FlightHandler interface {
	HandleListFlights(c echo.Context) error
	HandleGetFlight(c echo.Context) error
	HandleGetTrack(c echo.Context) error
	HandleGetTrackMsgpack(c echo.Context) error
	HandleGetRadarMeta(c echo.Context) error
	HandleGetRadarFrame(c echo.Context) error
}

// CatalogHandler handles catalog maintenance and display rule operations
type CatalogHandler interface {
	HandleGetMarkerRules(c echo.Context) error
	HandleReloadCatalog(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
