// handlers_flight.go - Flight catalog and track data handlers
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/models"
)

// FlightHandlerImpl implements the FlightHandler interface
type FlightHandlerImpl struct {
	store  catalog.Store
	loader *catalog.Loader
	lg     *logger.Logger
}

// NewFlightHandler creates a new flight handler instance
func NewFlightHandler(store catalog.Store, loader *catalog.Loader, lg *logger.Logger) FlightHandler {
	return &FlightHandlerImpl{
		store:  store,
		loader: loader,
		lg:     lg,
	}
}

// HandleListFlights returns all flights known to the catalog
func (h *FlightHandlerImpl) HandleListFlights(c echo.Context) error {
	flights := h.store.List()
	if flights == nil {
		flights = []models.FlightInfo{}
	}
	return c.JSON(http.StatusOK, flights)
}

// HandleGetFlight returns catalog metadata for a single flight
func (h *FlightHandlerImpl) HandleGetFlight(c echo.Context) error {
	id := c.Param("id")

	info, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrFlightNotFound) {
			return NewNotFoundError("flight", id)
		}
		return NewInternalError("failed to look up flight", err)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleGetTrack returns the full GPS track for a flight, points sorted by time
func (h *FlightHandlerImpl) HandleGetTrack(c echo.Context) error {
	id := c.Param("id")

	bundle, err := h.loader.Load(id)
	if err != nil {
		return flightLoadError(id, err)
	}

	return c.JSON(http.StatusOK, &models.FlightTrack{
		FlightID: id,
		Points:   bundle.Track.Items(),
		Path:     bundle.Path,
	})
}

// HandleGetTrackMsgpack returns the flight track in MessagePack format.
// MessagePack is 30-50% smaller than JSON for dense point data.
func (h *FlightHandlerImpl) HandleGetTrackMsgpack(c echo.Context) error {
	id := c.Param("id")

	bundle, err := h.loader.Load(id)
	if err != nil {
		return flightLoadError(id, err)
	}

	data, err := msgpack.Marshal(&models.FlightTrack{
		FlightID: id,
		Points:   bundle.Track.Items(),
		Path:     bundle.Path,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetRadarMeta returns radar overlay bounds and frame index for a flight
func (h *FlightHandlerImpl) HandleGetRadarMeta(c echo.Context) error {
	id := c.Param("id")

	bundle, err := h.loader.Load(id)
	if err != nil {
		return flightLoadError(id, err)
	}

	frames := bundle.Frames.Items()
	if frames == nil {
		frames = []models.RadarFrame{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"flightId": id,
		"bounds":   bundle.Bounds,
		"frames":   frames,
	})
}

// HandleGetRadarFrame serves a single radar frame image.
// Frame files are timestamped and never rewritten, so clients may cache them hard.
func (h *FlightHandlerImpl) HandleGetRadarFrame(c echo.Context) error {
	id := c.Param("id")
	file := c.Param("file")

	if file == "" {
		return NewValidationError("file")
	}

	path, err := h.store.FramePath(id, file)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrFlightNotFound):
			return NewNotFoundError("flight", id)
		case errors.Is(err, catalog.ErrFrameNotFound):
			return NewNotFoundError("radar frame", file)
		default:
			return NewBadRequestError("invalid frame filename", err)
		}
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400, immutable")
	return c.File(path)
}

// flightLoadError maps loader failures onto API errors
func flightLoadError(id string, err error) *APIError {
	if errors.Is(err, catalog.ErrFlightNotFound) {
		return NewNotFoundError("flight", id)
	}
	return NewInternalError("failed to load flight data", err)
}
