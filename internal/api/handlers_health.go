// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uav-flightlog/backend/internal/cache"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	sessionMgr SessionManager
	cache      *cache.Store
}

// NewHealthHandler creates a new health handler. cache may be nil.
func NewHealthHandler(version string, sessionMgr SessionManager, store *cache.Store) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		sessionMgr: sessionMgr,
		cache:      store,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.sessionMgr != nil {
		body["sessions"] = len(h.sessionMgr.ListSessions())
	}
	if h.cache != nil {
		body["cache"] = h.cache.Stats()
	}
	return c.JSON(http.StatusOK, body)
}
