package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/uav-flightlog/backend/internal/cache"
	"github.com/uav-flightlog/backend/internal/metrics"
	"github.com/uav-flightlog/backend/internal/models"
	"github.com/uav-flightlog/backend/internal/parser"
	"github.com/uav-flightlog/backend/internal/workbook"
	"go.uber.org/zap"
)

// ConverterConfig holds the inputs shared by every conversion.
type ConverterConfig struct {
	NamesPath    string
	SourcesPath  string
	OutputDir    string
	ExportDuckDB bool
	Merge        parser.MergeConfig
}

// ConvertRequest describes one log conversion.
type ConvertRequest struct {
	LogPath string
	Flight  models.FlightInfo
	// WorkbookPath defaults to <OutputDir>/<log name>_<date>_Flight<n>.xlsx.
	WorkbookPath string
	// AuxWorkbookPath optionally names a workbook of auxiliary sensor
	// tables merged into the result by message type.
	AuxWorkbookPath string
	// Aux holds reserved key/value sheets, e.g. "_weather".
	Aux map[string]map[string]string
	// Force rebuilds even when a matching cache artifact exists.
	Force bool
}

// ConvertResult is the outcome of a conversion.
type ConvertResult struct {
	Values       models.ValuesList
	WorkbookPath string
	DuckDBPath   string
	CacheKey     string
	CacheHit     bool
	Tables       int
	Warnings     []*models.ParseError
}

// ProgressFunc receives the conversion progress from 0 to 100.
type ProgressFunc func(percent float64)

// Converter runs the log → workbook → ValuesList pipeline. It holds no
// per-conversion state, so one Converter serves concurrent sessions.
type Converter struct {
	cfg     ConverterConfig
	parser  parser.Parser
	cache   *cache.Store
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewConverter creates a Converter. store may be nil to disable caching.
func NewConverter(cfg ConverterConfig, store *cache.Store, log *zap.Logger, m *metrics.Metrics) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{
		cfg:     cfg,
		parser:  parser.NewLogParser(log),
		cache:   store,
		log:     log.Named("converter"),
		metrics: m,
	}
}

// validateFlight rejects flight fields that would break composite headers.
func validateFlight(f models.FlightInfo) error {
	fields := []struct{ name, value string }{{"date", f.Date}, {"number", f.Number}}
	for _, field := range fields {
		if field.value == "" {
			return fmt.Errorf("flight %s is required", field.name)
		}
		if strings.Contains(field.value, "_") {
			return fmt.Errorf("flight %s %q must not contain '_'", field.name, field.value)
		}
	}
	return nil
}

// WorkbookPathFor returns the default workbook location of a request.
func (c *Converter) WorkbookPathFor(req ConvertRequest) string {
	if req.WorkbookPath != "" {
		return req.WorkbookPath
	}
	base := strings.TrimSuffix(filepath.Base(req.LogPath), filepath.Ext(req.LogPath))
	name := fmt.Sprintf("%s_%s_Flight%s.xlsx", base, req.Flight.Date, req.Flight.Number)
	return filepath.Join(c.cfg.OutputDir, name)
}

// Convert runs one conversion. Structural errors (missing registry, bad FMT
// block, unreadable files) abort it; everything else is collected in the
// result's warnings.
func (c *Converter) Convert(ctx context.Context, req ConvertRequest, progress ProgressFunc) (*ConvertResult, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	if err := validateFlight(req.Flight); err != nil {
		return nil, err
	}

	registry, err := parser.LoadSchemaRegistry(c.cfg.NamesPath, c.cfg.SourcesPath)
	if err != nil {
		return nil, err
	}

	result := &ConvertResult{WorkbookPath: c.WorkbookPathFor(req)}
	result.Warnings = append(result.Warnings, registry.Warnings()...)
	c.metrics.Warnings("registry", len(registry.Warnings()))

	fingerprint, err := cache.Fingerprint(req.Flight.Date+"/"+req.Flight.Number,
		req.LogPath, c.cfg.NamesPath, c.cfg.SourcesPath, req.AuxWorkbookPath)
	if err != nil {
		return nil, err
	}
	result.CacheKey = cache.Key(result.WorkbookPath)

	if c.cache != nil && !req.Force {
		values, err := c.cache.Load(result.CacheKey, fingerprint)
		switch {
		case err == nil && c.artifactsPresent(result):
			c.log.Info("cache hit, skipping conversion", zap.String("key", result.CacheKey))
			result.Values = values
			result.Tables = len(values.MessageTypes())
			result.CacheHit = true
			progress(100)
			return result, nil
		case err == nil:
			c.log.Info("cached values without their workbook, rebuilding",
				zap.String("key", result.CacheKey),
				zap.String("workbook", result.WorkbookPath))
		case !errors.Is(err, cache.ErrCacheMiss):
			return nil, err
		}
	}
	progress(10)

	parsed, err := c.parser.ParseFile(req.LogPath)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", req.LogPath, err)
	}
	c.collect(result, "parse", parsed.Warnings)
	progress(30)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tables, warnings := parser.Materialize(parsed, registry, req.Flight)
	c.collect(result, "materialize", warnings)
	result.Tables = len(tables)

	if err := os.MkdirAll(filepath.Dir(result.WorkbookPath), 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	// The workbook is the durable form; the values are built from this
	// conversion's own staged copy, which is then published in one rename.
	staged, err := workbook.WriteStaged(result.WorkbookPath, tables, req.Aux)
	if err != nil {
		return nil, err
	}
	progress(50)

	wb, err := workbook.Read(staged)
	if err != nil {
		os.Remove(staged)
		return nil, err
	}
	if err := workbook.Publish(staged, result.WorkbookPath); err != nil {
		return nil, err
	}
	values := c.buildValues(result, wb.Tables)
	progress(70)

	if req.AuxWorkbookPath != "" {
		auxWB, err := workbook.Read(req.AuxWorkbookPath)
		if err != nil {
			return nil, fmt.Errorf("auxiliary workbook: %w", err)
		}
		values = parser.MergeValues(values, c.buildValues(result, auxWB.Tables), c.cfg.Merge)
	}
	result.Values = values
	progress(80)

	if c.cfg.ExportDuckDB {
		result.DuckDBPath = duckDBPathFor(result.WorkbookPath)
		if err := parser.ExportValues(ctx, result.DuckDBPath, values, c.log); err != nil {
			return nil, fmt.Errorf("exporting to DuckDB: %w", err)
		}
	}
	progress(90)

	if c.cache != nil {
		if err := c.cache.Save(result.CacheKey, fingerprint, values); err != nil {
			// The conversion itself succeeded; the next run rebuilds.
			c.log.Warn("failed to save cache", zap.String("key", result.CacheKey), zap.Error(err))
		}
	}
	progress(100)
	return result, nil
}

func duckDBPathFor(workbookPath string) string {
	return strings.TrimSuffix(workbookPath, filepath.Ext(workbookPath)) + ".duckdb"
}

// artifactsPresent reports whether the files a conversion publishes still
// exist, so a cached ValuesList is only reused alongside them.
func (c *Converter) artifactsPresent(result *ConvertResult) bool {
	if _, err := os.Stat(result.WorkbookPath); err != nil {
		return false
	}
	if !c.cfg.ExportDuckDB {
		return true
	}
	duckPath := duckDBPathFor(result.WorkbookPath)
	if _, err := os.Stat(duckPath); err != nil {
		return false
	}
	result.DuckDBPath = duckPath
	return true
}

func (c *Converter) buildValues(result *ConvertResult, tables []models.MessageTable) models.ValuesList {
	aligned, warnings := parser.AlignAll(tables)
	c.collect(result, "align", warnings)

	values, warnings := parser.BuildValues(aligned)
	c.collect(result, "values", warnings)
	return values
}

func (c *Converter) collect(result *ConvertResult, stage string, warnings []*models.ParseError) {
	if len(warnings) == 0 {
		return
	}
	result.Warnings = append(result.Warnings, warnings...)
	c.metrics.Warnings(stage, len(warnings))
	c.log.Debug("stage warnings", zap.String("stage", stage), zap.Int("count", len(warnings)))
}

// ConvertTimed wraps Convert with duration and outcome metrics.
func (c *Converter) ConvertTimed(ctx context.Context, req ConvertRequest, progress ProgressFunc) (*ConvertResult, error) {
	start := time.Now()
	result, err := c.Convert(ctx, req, progress)
	status, tables := "complete", 0
	if err != nil {
		status = "error"
	} else {
		tables = result.Tables
	}
	c.metrics.ConversionFinished(status, time.Since(start).Seconds(), tables)
	return result, err
}
