package models

// SessionStatus represents the status of a conversion session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusConverting SessionStatus = "converting"
	SessionStatusComplete   SessionStatus = "complete"
	SessionStatusError      SessionStatus = "error"
)

// ConversionSession represents one log conversion run.
type ConversionSession struct {
	ID               string        `json:"id"`
	LogPath          string        `json:"logPath"`
	WorkbookPath     string        `json:"workbookPath"`
	DuckDBPath       string        `json:"duckdbPath,omitempty"`
	Flight           FlightInfo    `json:"flight"`
	Status           SessionStatus `json:"status"`
	Progress         float64       `json:"progress"` // 0-100
	TableCount       int           `json:"tableCount,omitempty"`
	EntryCount       int           `json:"entryCount,omitempty"`
	ColumnCount      int           `json:"columnCount,omitempty"`
	CacheHit         bool          `json:"cacheHit"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	Warnings         []ParseError  `json:"warnings,omitempty"`
	Errors           []ParseError  `json:"errors,omitempty"`
}

// ParseError represents a finding encountered during conversion.
// Line is 0 when the finding is not tied to a log line.
type ParseError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// NewConversionSession creates a new ConversionSession in pending status.
func NewConversionSession(id, logPath string, flight FlightInfo) *ConversionSession {
	return &ConversionSession{
		ID:       id,
		LogPath:  logPath,
		Flight:   flight,
		Status:   SessionStatusPending,
		Progress: 0,
		Warnings: make([]ParseError, 0),
		Errors:   make([]ParseError, 0),
	}
}
