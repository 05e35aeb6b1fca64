// handlers_catalog.go - Marker rule and catalog maintenance handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudseed-visualizer/backend/internal/catalog"
	"github.com/cloudseed-visualizer/backend/internal/logger"
	"github.com/cloudseed-visualizer/backend/internal/metrics"
	"github.com/cloudseed-visualizer/backend/internal/models"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	store  catalog.Store
	loader *catalog.Loader
	rules  *models.MarkerRules
	met    *metrics.Collector
	lg     *logger.Logger
}

// NewCatalogHandler creates a new catalog handler instance
func NewCatalogHandler(store catalog.Store, loader *catalog.Loader, rules *models.MarkerRules, met *metrics.Collector, lg *logger.Logger) CatalogHandler {
	return &CatalogHandlerImpl{
		store:  store,
		loader: loader,
		rules:  rules,
		met:    met,
		lg:     lg,
	}
}

// HandleGetMarkerRules returns the active marker display rules
func (h *CatalogHandlerImpl) HandleGetMarkerRules(c echo.Context) error {
	rules := h.rules
	if rules == nil {
		rules = models.DefaultMarkerRules()
	}
	return c.JSON(http.StatusOK, rules)
}

// HandleReloadCatalog rescans the data directory and drops cached flight bundles.
// Open playback sessions keep the bundle they loaded with.
func (h *CatalogHandlerImpl) HandleReloadCatalog(c echo.Context) error {
	if err := h.store.Reload(); err != nil {
		return NewInternalError("failed to reload catalog", err)
	}
	h.loader.Invalidate()
	h.met.CatalogReloaded()

	n := len(h.store.List())
	h.lg.Infof("Catalog reloaded via API: %d flights", n)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"flights": n,
	})
}
