// handlers_convert.go - Conversion session handlers
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uav-flightlog/backend/internal/models"
	"github.com/uav-flightlog/backend/internal/parser"
	"github.com/uav-flightlog/backend/internal/session"
	"go.uber.org/zap"
)

// ConvertHandlerImpl implements the ConvertHandler interface
type ConvertHandlerImpl struct {
	sessionMgr SessionManager
	dataDir    string
	outputDir  string
	log        *zap.Logger
}

// NewConvertHandler creates a new convert handler. Log and auxiliary
// workbook paths in requests must lie inside dataDir and workbook paths
// inside outputDir; relative paths resolve against those directories. An
// empty directory stands for the working directory.
func NewConvertHandler(sessionMgr SessionManager, dataDir, outputDir string, log *zap.Logger) ConvertHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConvertHandlerImpl{
		sessionMgr: sessionMgr,
		dataDir:    dataDir,
		outputDir:  outputDir,
		log:        log,
	}
}

type convertRequest struct {
	LogPath         string                       `json:"logPath" validate:"required"`
	FlightDate      string                       `json:"flightDate" validate:"required,noseparator"`
	FlightNumber    string                       `json:"flightNumber" validate:"required,noseparator"`
	WorkbookPath    string                       `json:"workbookPath,omitempty"`
	AuxWorkbookPath string                       `json:"auxWorkbookPath,omitempty"`
	Aux             map[string]map[string]string `json:"aux,omitempty"`
	Force           bool                         `json:"force,omitempty"`
}

// errOutsideRoot is returned for request paths that escape their directory.
var errOutsideRoot = errors.New("path is outside the allowed directory")

// confine resolves path against root and rejects it unless the cleaned
// result stays inside root. An empty path stays empty.
func confine(root, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(absRoot, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(absRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errOutsideRoot, path)
	}
	return resolved, nil
}

// HandleStartConvert starts a new conversion session
func (h *ConvertHandlerImpl) HandleStartConvert(c echo.Context) error {
	var req convertRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	logPath, err := confine(h.dataDir, req.LogPath)
	if err != nil {
		return NewBadRequestError("log path must lie inside the data directory", err)
	}
	auxPath, err := confine(h.dataDir, req.AuxWorkbookPath)
	if err != nil {
		return NewBadRequestError("auxiliary workbook path must lie inside the data directory", err)
	}
	workbookPath, err := confine(h.outputDir, req.WorkbookPath)
	if err != nil {
		return NewBadRequestError("workbook path must lie inside the output directory", err)
	}

	if _, err := os.Stat(logPath); err != nil {
		return NewNotFoundError("log file", req.LogPath)
	}
	if auxPath != "" {
		if _, err := os.Stat(auxPath); err != nil {
			return NewNotFoundError("auxiliary workbook", req.AuxWorkbookPath)
		}
	}

	sess, err := h.sessionMgr.StartSession(session.ConvertRequest{
		LogPath:         logPath,
		Flight:          models.FlightInfo{Date: req.FlightDate, Number: req.FlightNumber},
		WorkbookPath:    workbookPath,
		AuxWorkbookPath: auxPath,
		Aux:             req.Aux,
		Force:           req.Force,
	})
	if err != nil {
		return NewInternalError("failed to start session", err)
	}

	h.log.Info("conversion requested",
		zap.String("session", sess.ID),
		zap.String("log", logPath))
	return c.JSON(http.StatusAccepted, sess)
}

// HandleListSessions returns all sessions ordered by ID
func (h *ConvertHandlerImpl) HandleListSessions(c echo.Context) error {
	sessions := h.sessionMgr.ListSessions()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID < sessions[j].ID
	})
	return c.JSON(http.StatusOK, sessions)
}

// HandleConvertStatus returns the current status of a conversion session
func (h *ConvertHandlerImpl) HandleConvertStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleSessionKeepAlive extends session lifetime for active viewing
func (h *ConvertHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if ok := h.sessionMgr.TouchSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleDeleteSession forgets a session; its files stay on disk
func (h *ConvertHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if !h.sessionMgr.DeleteSession(id) {
		return NewNotFoundError("session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleConvertProgressStream streams conversion progress via SSE
func (h *ConvertHandlerImpl) HandleConvertProgressStream(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sendSSEData(c, sess)
	if finished(sess) {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(5 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil

		case <-ticker.C:
			sess, ok := h.sessionMgr.GetSession(id)
			if !ok {
				sendSSEError(c, "session not found")
				return nil
			}

			sendSSEData(c, sess)
			if finished(sess) {
				return nil
			}

		case <-timeout.C:
			sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

func finished(s *models.ConversionSession) bool {
	return s.Status == models.SessionStatusComplete || s.Status == models.SessionStatusError
}

type seriesColumn struct {
	DisplayName string `json:"displayName"`
	Unit        string `json:"unit"`
	Samples     int    `json:"samples"`
	Textual     bool   `json:"textual,omitempty"`
}

type seriesEntry struct {
	Index       int            `json:"index"`
	MessageType string         `json:"messageType"`
	Columns     []seriesColumn `json:"columns"`
}

// HandleGetSeries lists the columns a session offers for plotting
func (h *ConvertHandlerImpl) HandleGetSeries(c echo.Context) error {
	id := c.Param("id")
	values, err := sessionValues(h.sessionMgr, id)
	if err != nil {
		return err
	}

	messageType := c.QueryParam("messageType")
	entries := make([]seriesEntry, 0, len(values.Entries))
	for i, e := range values.Entries {
		if messageType != "" && !strings.EqualFold(e.MessageType, messageType) {
			continue
		}
		entry := seriesEntry{Index: i, MessageType: e.MessageType, Columns: make([]seriesColumn, 0, len(e.Columns))}
		for _, col := range e.Columns {
			entry.Columns = append(entry.Columns, seriesColumn{
				DisplayName: col.DisplayName,
				Unit:        col.Unit,
				Samples:     col.Len(),
				Textual:     col.Text != nil,
			})
		}
		entries = append(entries, entry)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessionId": id,
		"entries":   entries,
	})
}

type exportTable struct {
	Name        string `json:"name"`
	EntryIndex  int    `json:"entryIndex"`
	MessageType string `json:"messageType"`
	Columns     int    `json:"columns"`
	Rows        int    `json:"rows"`
}

type exportSummary struct {
	Path   string        `json:"path"`
	Tables []exportTable `json:"tables"`
}

// HandleExportSummary describes the DuckDB export of a completed session:
// its tables in entry order with column and row counts read back from the
// file.
func (h *ConvertHandlerImpl) HandleExportSummary(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	if sess.Status != models.SessionStatusComplete {
		return NewConflictError("session " + id + " has no completed conversion")
	}
	if sess.DuckDBPath == "" {
		return NewNotFoundError("export database", id)
	}

	ds, err := parser.OpenDuckStoreReadOnly(sess.DuckDBPath, h.log)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewNotFoundError("export database", id)
		}
		return NewInternalError("failed to open export database", err)
	}
	defer ds.Close()

	ctx := c.Request().Context()
	tables, err := ds.Tables(ctx)
	if err != nil {
		return NewInternalError("failed to list exported tables", err)
	}
	values, err := ds.LoadValues(ctx)
	if err != nil {
		return NewInternalError("failed to read exported tables", err)
	}

	summary := exportSummary{Path: sess.DuckDBPath, Tables: make([]exportTable, len(tables))}
	for i, t := range tables {
		summary.Tables[i] = exportTable{
			Name:        t.Name,
			EntryIndex:  t.EntryIndex,
			MessageType: t.MessageType,
			Columns:     t.Columns,
		}
		if i < len(values.Entries) {
			for _, col := range values.Entries[i].Columns {
				if n := col.Len(); n > summary.Tables[i].Rows {
					summary.Tables[i].Rows = n
				}
			}
		}
	}
	return c.JSON(http.StatusOK, summary)
}

// sessionValues fetches the values of a complete session and maps session
// errors onto API errors.
func sessionValues(mgr SessionManager, id string) (models.ValuesList, error) {
	if id == "" {
		return models.ValuesList{}, NewValidationError("id")
	}
	values, err := mgr.GetValues(id)
	switch {
	case err == nil:
		return values, nil
	case errors.Is(err, session.ErrSessionNotFound):
		return values, NewNotFoundError("session", id)
	case errors.Is(err, session.ErrSessionNotReady):
		return values, NewConflictError(fmt.Sprintf("session %s has no converted values", id))
	default:
		return values, NewInternalError("failed to load values", err)
	}
}

func sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func sendSSEError(c echo.Context, message string) {
	sendSSEData(c, map[string]string{"error": message})
}
