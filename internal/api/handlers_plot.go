// handlers_plot.go - Plot request handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uav-flightlog/backend/internal/metrics"
	"github.com/uav-flightlog/backend/internal/models"
	"github.com/uav-flightlog/backend/internal/parser"
	"github.com/uav-flightlog/backend/internal/plot"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// PlotHandlerImpl implements the PlotHandler interface
type PlotHandlerImpl struct {
	sessionMgr  SessionManager
	catalogPath string
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// NewPlotHandler creates a new plot handler. catalogPath names the default
// plot catalog used when a catalog request carries none; it may be empty.
func NewPlotHandler(sessionMgr SessionManager, catalogPath string, m *metrics.Metrics, log *zap.Logger) PlotHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlotHandlerImpl{
		sessionMgr:  sessionMgr,
		catalogPath: catalogPath,
		metrics:     m,
		log:         log,
	}
}

type plotRequest struct {
	Series []models.SeriesReference `json:"series" validate:"required,min=1,dive"`
}

type plotResponse struct {
	Code      models.Classification `json:"code" msgpack:"code"`
	CodeName  string                `json:"codeName" msgpack:"codeName"`
	Plottable bool                  `json:"plottable" msgpack:"plottable"`
	Units     []string              `json:"units" msgpack:"units"`
	Bundle    models.SeriesBundle   `json:"bundle" msgpack:"bundle"`
}

type dualPlotResponse struct {
	Code           models.Classification `json:"code"`
	CodeName       string                `json:"codeName"`
	HasSecondary   bool                  `json:"hasSecondary"`
	PrimaryUnits   []string              `json:"primaryUnits"`
	SecondaryUnits []string              `json:"secondaryUnits"`
	Bundle         models.DualAxisBundle `json:"bundle"`
}

type catalogRequest struct {
	Catalog      *models.PlotCatalog `json:"catalog,omitempty"`
	DrawableOnly bool                `json:"drawableOnly,omitempty"`
}

// bindPlot binds and validates a plot request and loads the session values.
func (h *PlotHandlerImpl) bindPlot(c echo.Context) (plotRequest, models.ValuesList, error) {
	var req plotRequest
	if err := c.Bind(&req); err != nil {
		return req, models.ValuesList{}, NewBadRequestError("invalid request body", err)
	}
	models.NormalizeRoles(req.Series)
	if err := c.Validate(&req); err != nil {
		return req, models.ValuesList{}, err
	}

	values, err := sessionValues(h.sessionMgr, c.Param("id"))
	if err != nil {
		return req, values, err
	}
	h.sessionMgr.TouchSession(c.Param("id"))
	return req, values, nil
}

func (h *PlotHandlerImpl) plot(c echo.Context) (*plotResponse, error) {
	req, values, err := h.bindPlot(c)
	if err != nil {
		return nil, err
	}

	bundle := plot.Bundle(values, req.Series)
	h.metrics.Classified(int(bundle.Code), "plot")
	h.log.Debug("plot resolved",
		zap.Int("requested", len(req.Series)),
		zap.Int("resolved", len(bundle.Series)),
		zap.Stringer("code", bundle.Code))

	return &plotResponse{
		Code:      bundle.Code,
		CodeName:  bundle.Code.String(),
		Plottable: bundle.Plottable(),
		Units:     plot.Units(bundle),
		Bundle:    bundle,
	}, nil
}

// HandlePlot resolves and classifies a set of series references
func (h *PlotHandlerImpl) HandlePlot(c echo.Context) error {
	resp, err := h.plot(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandlePlotMsgpack returns the plot in MessagePack format
func (h *PlotHandlerImpl) HandlePlotMsgpack(c echo.Context) error {
	resp, err := h.plot(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandlePlotDual resolves a plot with a primary (y) and secondary (y2) axis
func (h *PlotHandlerImpl) HandlePlotDual(c echo.Context) error {
	req, values, err := h.bindPlot(c)
	if err != nil {
		return err
	}

	dual := plot.BundleDualAxis(values, req.Series)
	h.metrics.Classified(int(dual.Code()), "dual")

	return c.JSON(http.StatusOK, dualPlotResponse{
		Code:           dual.Code(),
		CodeName:       dual.Code().String(),
		HasSecondary:   dual.HasSecondary(),
		PrimaryUnits:   plot.Units(dual.Primary),
		SecondaryUnits: plot.Units(dual.Secondary),
		Bundle:         dual,
	})
}

// HandleCatalog resolves every plot of a catalog. The request may carry the
// catalog inline; otherwise the configured catalog file is used.
func (h *PlotHandlerImpl) HandleCatalog(c echo.Context) error {
	var req catalogRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	catalog := req.Catalog
	if catalog == nil {
		if h.catalogPath == "" {
			return NewValidationError("catalog")
		}
		loaded, err := parser.ParsePlotCatalog(h.catalogPath)
		if err != nil {
			return NewInternalError("failed to load plot catalog", err)
		}
		catalog = loaded
	} else {
		for i := range catalog.Plots {
			models.NormalizeRoles(catalog.Plots[i].Series)
		}
		if err := c.Validate(catalog); err != nil {
			return err
		}
	}

	values, err := sessionValues(h.sessionMgr, c.Param("id"))
	if err != nil {
		return err
	}
	h.sessionMgr.TouchSession(c.Param("id"))

	results := plot.ResolveCatalog(values, catalog)
	kept := make([]plot.CatalogResult, 0, len(results))
	for _, r := range results {
		h.metrics.Classified(int(r.Code), "catalog")
		if req.DrawableOnly && !r.Drawable() {
			continue
		}
		kept = append(kept, r)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessionId": c.Param("id"),
		"plots":     kept,
	})
}
