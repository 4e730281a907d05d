// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/uav-flightlog/backend/internal/cache"
	"github.com/uav-flightlog/backend/internal/metrics"
	"go.uber.org/zap"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	SessionMgr  SessionManager
	Cache       *cache.Store
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	DataDir     string
	OutputDir   string
	CatalogPath string
	Version     string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Convert ConvertHandler
	Plot    PlotHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("api")
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.SessionMgr, deps.Cache),
		Convert: NewConvertHandler(deps.SessionMgr, deps.DataDir, deps.OutputDir, log),
		Plot:    NewPlotHandler(deps.SessionMgr, deps.CatalogPath, deps.Metrics, log),
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
// The metrics endpoint is only mounted when m is non-nil.
func RegisterRoutes(e *echo.Echo, handlers *Handlers, m *metrics.Metrics) {
	e.GET("/health", handlers.Health.HandleHealth)

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	// Conversion session routes
	convertGroup := e.Group("/api/convert")
	convertGroup.POST("", handlers.Convert.HandleStartConvert)
	convertGroup.GET("", handlers.Convert.HandleListSessions)
	convertGroup.GET("/:id", handlers.Convert.HandleConvertStatus)
	convertGroup.DELETE("/:id", handlers.Convert.HandleDeleteSession)
	convertGroup.POST("/:id/keepalive", handlers.Convert.HandleSessionKeepAlive)
	convertGroup.GET("/:id/progress", handlers.Convert.HandleConvertProgressStream)
	convertGroup.GET("/:id/series", handlers.Convert.HandleGetSeries)
	convertGroup.GET("/:id/duckdb", handlers.Convert.HandleExportSummary)

	// Plot routes
	convertGroup.POST("/:id/plot", handlers.Plot.HandlePlot)
	convertGroup.POST("/:id/plot/msgpack", handlers.Plot.HandlePlotMsgpack)
	convertGroup.POST("/:id/plot/dual", handlers.Plot.HandlePlotDual)
	convertGroup.POST("/:id/catalog", handlers.Plot.HandleCatalog)
}

// MiddlewareConfig holds the settings SetupMiddleware needs.
type MiddlewareConfig struct {
	Log            *zap.Logger
	Metrics        *metrics.Metrics
	LogRequests    bool
	ShowErrorInfo  bool
	RequestTimeout time.Duration
	BodyLimit      string
	EnableCORS     bool
	AllowOrigins   string
}

// SetupMiddleware configures common middleware, the error handler and the
// request validator.
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = NewErrorHandler(cfg.Log, cfg.ShowErrorInfo)
	e.Validator = NewRequestValidator()

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))
	e.Use(RequestLogger(cfg.Log, cfg.Metrics, cfg.LogRequests))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: cfg.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				return strings.HasSuffix(c.Request().URL.Path, "/progress") ||
					c.Request().Header.Get("Accept") == "text/event-stream"
			},
			ErrorMessage: "Request timeout",
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := strings.Split(cfg.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
