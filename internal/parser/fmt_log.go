package parser

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/uav-flightlog/backend/internal/models"
	"go.uber.org/zap"
)

// FieldSeparator separates the fields of a log line.
const FieldSeparator = ", "

// fmtTag is the type tag of header records.
const fmtTag = "FMT"

// metaTypes are record types that describe the log itself and are never
// materialized as tables.
var metaTypes = map[string]struct{}{
	"FMT":  {},
	"UNIT": {},
	"FMTU": {},
}

// IsMetaType reports whether a message type is a meta record.
func IsMetaType(name string) bool {
	_, ok := metaTypes[name]
	return ok
}

// DataRow is one data line of the log: the values after the type tag.
type DataRow struct {
	Line   int
	Values []string
}

// ParsedLog is the result of scanning a log once.
type ParsedLog struct {
	// Formats are the FMT declarations in header order.
	Formats []models.MessageFormat
	// Rows groups data rows by type tag in file order.
	Rows map[string][]DataRow
	// Seen is the set of type tags observed on data lines.
	Seen     map[string]struct{}
	Lines    int
	Warnings []*models.ParseError
}

// HasData reports whether at least one data line carries the type tag.
func (p *ParsedLog) HasData(messageType string) bool {
	_, ok := p.Seen[messageType]
	return ok
}

// Eligible returns the formats that are materialized: not a meta record,
// with data in the log, and on the allow-list. Order is FMT declaration order.
func (p *ParsedLog) Eligible(registry *SchemaRegistry) []models.MessageFormat {
	out := make([]models.MessageFormat, 0, len(p.Formats))
	for _, f := range p.Formats {
		if IsMetaType(f.Name) || !p.HasData(f.Name) || !registry.Allowed(f.Name) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// LogParser reads FMT-headed telemetry logs.
type LogParser struct {
	log *zap.Logger
}

var _ Parser = (*LogParser)(nil)

// NewLogParser creates a LogParser. A nil logger disables logging.
func NewLogParser(log *zap.Logger) *LogParser {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogParser{log: log.Named("parser")}
}

// Name returns the parser name.
func (p *LogParser) Name() string {
	return "fmt_text_log"
}

// CanParse returns true if the file starts with an FMT record.
func (p *LogParser) CanParse(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		return typeTag(line) == fmtTag, nil
	}
	return false, scanner.Err()
}

// ParseFile parses the log at filePath.
func (p *LogParser) ParseFile(filePath string) (*ParsedLog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return p.Parse(file)
}

// Parse scans the log once. The FMT header block is the contiguous run of
// FMT lines at the top of the log; FMT lines after it are reported and
// ignored. A malformed FMT line or a log without FMT lines is fatal.
func (p *LogParser) Parse(r io.Reader) (*ParsedLog, error) {
	result := &ParsedLog{
		Formats: make([]models.MessageFormat, 0, 64),
		Rows:    make(map[string][]DataRow, 64),
		Seen:    make(map[string]struct{}, 64),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inHeader := true
	declared := make(map[string]struct{}, 64)
	pool := NewStringPool()
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitFields(line)
		tag := fields[0]

		if tag == fmtTag {
			if !inHeader {
				result.Warnings = append(result.Warnings, warning(lineNum, line, "FMT record after header block ignored"))
				continue
			}
			format, err := parseFormat(fields, lineNum, line)
			if err != nil {
				return nil, err
			}
			if _, dup := declared[format.Name]; dup {
				result.Warnings = append(result.Warnings, warning(lineNum, line, "duplicate FMT declaration, first kept"))
				continue
			}
			declared[format.Name] = struct{}{}
			result.Formats = append(result.Formats, format)
			continue
		}

		inHeader = false
		pool.InternAll(fields)
		tag = fields[0]
		result.Seen[tag] = struct{}{}
		result.Rows[tag] = append(result.Rows[tag], DataRow{Line: lineNum, Values: fields[1:]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	result.Lines = lineNum

	if len(result.Formats) == 0 {
		return nil, ErrNoFormats
	}

	p.log.Debug("log scanned",
		zap.Int("lines", lineNum),
		zap.Int("formats", len(result.Formats)),
		zap.Int("types_with_data", len(result.Seen)),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

// parseFormat decodes "FMT, <id>, <len>, <name>, <format>, <columns>".
func parseFormat(fields []string, lineNum int, line string) (models.MessageFormat, error) {
	if len(fields) < 6 {
		return models.MessageFormat{}, &LogError{Line: lineNum, Content: line, Reason: "FMT record needs 6 fields"}
	}

	name := fields[3]
	if name == "" {
		return models.MessageFormat{}, &LogError{Line: lineNum, Content: line, Reason: "FMT record without type name"}
	}

	// Columns may arrive as one comma-joined token or already split.
	columns := strings.Join(fields[5:], ",")
	var names []string
	for _, c := range strings.Split(columns, ",") {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	if len(names) == 0 {
		return models.MessageFormat{}, &LogError{Line: lineNum, Content: line, Reason: "FMT record without columns"}
	}

	typeID, _ := strconv.Atoi(fields[1])
	length, _ := strconv.Atoi(fields[2])
	return models.MessageFormat{
		TypeID: typeID,
		Length: length,
		Name:   name,
		Format: fields[4],
		Fields: names,
		Line:   lineNum,
	}, nil
}

// splitFields splits a log line on the field separator and trims each field.
func splitFields(line string) []string {
	parts := strings.Split(line, FieldSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// typeTag returns the first field of a line.
func typeTag(line string) string {
	if idx := strings.Index(line, ","); idx >= 0 {
		return strings.TrimSpace(line[:idx])
	}
	return strings.TrimSpace(line)
}
