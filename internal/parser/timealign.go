package parser

import (
	"fmt"
	"strings"

	"github.com/uav-flightlog/backend/internal/models"
)

// MicrosecondsPerSecond is the rescale divisor for microsecond time columns.
const MicrosecondsPerSecond = 1e6

const (
	unitMicroseconds = "US"
	unitSeconds      = "s"
)

// IsTimeColumn reports whether a display name denotes a time column.
func IsTimeColumn(displayName string) bool {
	return strings.Contains(strings.ToLower(displayName), "time")
}

// columnInfo is the decoded header of one table column.
type columnInfo struct {
	info   HeaderInfo
	ok     bool
	isTime bool
}

func describeColumns(header []string) []columnInfo {
	cols := make([]columnInfo, len(header))
	for i, h := range header {
		info, err := ParseHeader(h)
		if err != nil {
			continue
		}
		cols[i] = columnInfo{info: info, ok: true, isTime: IsTimeColumn(info.DisplayName)}
	}
	return cols
}

// Align rescales microsecond time columns to seconds and splits the table
// into consecutive narrow tables, each ending at exactly one time column.
//
// A time column is rescaled only while its unit token is "US", or while it
// is missing from the registry (unit "unavailable") and its raw field name
// ends in "US" such as "TimeUS". The unit then becomes "s", so aligning an
// aligned table changes nothing. Columns left
// after the last time column (including a table with no time column at all)
// cannot be grouped and make Align return ErrUngroupedColumns.
func Align(table models.MessageTable) ([]models.MessageTable, error) {
	if len(table.Header) == 0 {
		return nil, nil
	}

	cols := describeColumns(table.Header)
	header := make([]string, len(table.Header))
	copy(header, table.Header)
	rows := copyRows(table.Rows)

	for i, c := range cols {
		if !c.isTime {
			continue
		}
		info, ok := rescaledHeader(c.info)
		if !ok {
			continue
		}
		header[i] = EncodeHeader(info)
		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			if v, ok := ParseNumeric(row[i]); ok {
				row[i] = FormatNumeric(v / MicrosecondsPerSecond)
			}
		}
	}

	groups := make([]models.MessageTable, 0, 1)
	start := 0
	for i, c := range cols {
		if !c.isTime {
			continue
		}
		groups = append(groups, subTable(table.MessageType, header, rows, start, i+1))
		start = i + 1
	}

	if start < len(cols) {
		return nil, fmt.Errorf("%w: %s: %s", ErrUngroupedColumns, table.MessageType,
			strings.Join(header[start:], ", "))
	}

	return groups, nil
}

// rescaledHeader returns the header of a microsecond time column after
// conversion to seconds, or false when the column is not in microseconds.
func rescaledHeader(info HeaderInfo) (HeaderInfo, bool) {
	switch {
	case strings.EqualFold(info.Unit, unitMicroseconds):
		info.Unit = unitSeconds
		return info, true
	case info.Unit == models.UnitUnavailable &&
		len(info.DisplayName) > len(unitMicroseconds) &&
		strings.HasSuffix(info.DisplayName, unitMicroseconds):
		info.DisplayName = strings.TrimSuffix(info.DisplayName, unitMicroseconds)
		info.Unit = unitSeconds
		return info, true
	}
	return info, false
}

// subTable keeps columns [from, to) of every row.
func subTable(messageType string, header []string, rows [][]string, from, to int) models.MessageTable {
	t := models.MessageTable{
		MessageType: messageType,
		Header:      append([]string(nil), header[from:to]...),
		Rows:        make([][]string, len(rows)),
	}
	for r, row := range rows {
		cells := make([]string, to-from)
		for i := from; i < to && i < len(row); i++ {
			cells[i-from] = row[i]
		}
		t.Rows[r] = cells
	}
	return t
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// AlignAll aligns every table. Tables that cannot be grouped are skipped and
// reported; the remaining narrow tables keep the input order.
func AlignAll(tables []models.MessageTable) ([]models.MessageTable, []*models.ParseError) {
	var warnings []*models.ParseError
	out := make([]models.MessageTable, 0, len(tables))
	for _, t := range tables {
		groups, err := Align(t)
		if err != nil {
			warnings = append(warnings, warning(0, t.MessageType, err.Error()))
			continue
		}
		out = append(out, groups...)
	}
	return out, warnings
}
