// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/uav-flightlog/backend/internal/models"
	"github.com/uav-flightlog/backend/internal/session"
)

// ConvertHandler handles conversion session operations
type ConvertHandler interface {
	HandleStartConvert(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleConvertStatus(c echo.Context) error
	HandleConvertProgressStream(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleGetSeries(c echo.Context) error
	HandleExportSummary(c echo.Context) error
}

// PlotHandler handles plot requests against converted sessions
type PlotHandler interface {
	HandlePlot(c echo.Context) error
	HandlePlotMsgpack(c echo.Context) error
	HandlePlotDual(c echo.Context) error
	HandleCatalog(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(req session.ConvertRequest) (*models.ConversionSession, error)
	GetSession(id string) (*models.ConversionSession, bool)
	ListSessions() []*models.ConversionSession
	TouchSession(id string) bool
	DeleteSession(id string) bool
	GetValues(id string) (models.ValuesList, error)
}
