package parser

import (
	"fmt"
	"strings"

	"github.com/uav-flightlog/backend/internal/models"
)

// BuildValues converts time-aligned narrow tables into a ValuesList, one
// entry per table in input order. Headers that do not parse, or that name a
// different message type than their table, are skipped and reported.
func BuildValues(tables []models.MessageTable) (models.ValuesList, []*models.ParseError) {
	var warnings []*models.ParseError
	values := models.ValuesList{Entries: make([]models.ValuesEntry, 0, len(tables))}

	for _, table := range tables {
		entry := models.ValuesEntry{
			MessageType: table.MessageType,
			Columns:     make([]models.Column, 0, len(table.Header)),
		}

		for i, header := range table.Header {
			col, err := ColumnFromHeader(header)
			if err != nil {
				warnings = append(warnings, warning(0, header, err.Error()))
				continue
			}
			if !strings.EqualFold(col.MessageType, table.MessageType) {
				warnings = append(warnings, warning(0, header,
					fmt.Sprintf("column belongs to %s, table is %s", col.MessageType, table.MessageType)))
				continue
			}
			col.MessageType = table.MessageType
			fillColumn(&col, table.ColumnValues(i))
			entry.Columns = append(entry.Columns, col)
		}

		if len(entry.Columns) == 0 {
			continue
		}
		values.Entries = append(values.Entries, entry)
	}

	return values, warnings
}

// fillColumn parses the raw cells of a column. Columns with a non-empty,
// non-numeric cell also keep their raw text.
func fillColumn(col *models.Column, cells []string) {
	col.Values = make([]float64, len(cells))
	textual := false
	for i, cell := range cells {
		v, ok := ParseNumeric(cell)
		if !ok && strings.TrimSpace(cell) != "" {
			textual = true
		}
		col.Values[i] = v
	}
	if textual {
		col.Text = append([]string(nil), cells...)
	}
}
