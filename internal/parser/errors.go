package parser

import (
	"errors"
	"fmt"

	"github.com/uav-flightlog/backend/internal/models"
)

var (
	// ErrNoFormats is returned for a log without an FMT header block.
	ErrNoFormats = errors.New("log has no FMT records")
	// ErrRegistryMissing is returned when a registry file cannot be opened.
	ErrRegistryMissing = errors.New("registry file missing")
	// ErrUngroupedColumns is returned when a table has columns that are not
	// followed by a time column.
	ErrUngroupedColumns = errors.New("columns without a following time column")
	// ErrMalformedHeader is returned for a composite header that cannot be parsed.
	ErrMalformedHeader = errors.New("malformed composite header")
)

// LogError reports a structural error at a specific log line.
type LogError struct {
	Line    int
	Content string
	Reason  string
}

func (e *LogError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Content)
}

// warning builds a non-fatal finding.
func warning(line int, content, reason string) *models.ParseError {
	return &models.ParseError{Line: line, Content: content, Reason: reason}
}
