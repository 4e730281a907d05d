package parser

import (
	"fmt"

	"github.com/uav-flightlog/backend/internal/models"
)

// TimeLastOrder returns the declared fields with the first (time) field
// moved to the end.
func TimeLastOrder(fields []string) []string {
	if len(fields) <= 1 {
		out := make([]string, len(fields))
		copy(out, fields)
		return out
	}
	out := make([]string, 0, len(fields))
	out = append(out, fields[1:]...)
	out = append(out, fields[0])
	return out
}

// HeaderRow builds the composite header row of a message type.
func HeaderRow(format models.MessageFormat, registry *SchemaRegistry, flight models.FlightInfo) []string {
	ordered := TimeLastOrder(format.Fields)
	header := make([]string, len(ordered))
	for i, field := range ordered {
		fl := registry.Lookup(format.Name, field)
		header[i] = EncodeHeader(HeaderInfo{
			DisplayName:  fl.DisplayName,
			Unit:         fl.Unit,
			MessageType:  format.Name,
			FlightDate:   flight.Date,
			FlightNumber: flight.Number,
		})
	}
	return header
}

// Materialize builds one MessageTable per eligible message type, in FMT
// declaration order. Data rows are reordered like the header (time last).
// Rows whose field count differs from the declaration are padded or
// truncated and reported.
func Materialize(parsed *ParsedLog, registry *SchemaRegistry, flight models.FlightInfo) ([]models.MessageTable, []*models.ParseError) {
	var warnings []*models.ParseError
	eligible := parsed.Eligible(registry)
	tables := make([]models.MessageTable, 0, len(eligible))

	for _, format := range eligible {
		width := len(format.Fields)
		dataRows := parsed.Rows[format.Name]

		table := models.MessageTable{
			MessageType: format.Name,
			Header:      HeaderRow(format, registry, flight),
			Rows:        make([][]string, 0, len(dataRows)),
		}

		for _, dr := range dataRows {
			values := dr.Values
			if len(values) != width {
				warnings = append(warnings, warning(dr.Line, format.Name,
					fmt.Sprintf("row has %d fields, FMT declares %d", len(values), width)))
				values = fitWidth(values, width)
			}
			table.Rows = append(table.Rows, TimeLastOrder(values))
		}

		tables = append(tables, table)
	}

	return tables, warnings
}

// fitWidth pads with empty cells or truncates to width.
func fitWidth(values []string, width int) []string {
	out := make([]string, width)
	copy(out, values)
	return out
}
