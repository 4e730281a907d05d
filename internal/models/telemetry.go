// Package models contains domain types for the flight log converter.
package models

import (
	"encoding/json"
	"math"
	"strings"
)

// Unit markers used when the name/unit registry does not supply a real unit.
const (
	UnitNone        = "no unit"
	UnitUnavailable = "unavailable"
)

// MessageFormat is a record type declared by an FMT line in the log header.
type MessageFormat struct {
	TypeID int      `json:"typeId"`
	Length int      `json:"length"`
	Name   string   `json:"name"`
	Format string   `json:"format"`
	Fields []string `json:"fields"` // Fields[0] is the time field
	Line   int      `json:"line"`
}

// TimeField returns the declared time field (the first field).
func (f MessageFormat) TimeField() string {
	if len(f.Fields) == 0 {
		return ""
	}
	return f.Fields[0]
}

// MessageTable is one materialized table per eligible message type.
// Header holds composite header strings with the time column last.
type MessageTable struct {
	MessageType string     `json:"messageType"`
	Header      []string   `json:"header"`
	Rows        [][]string `json:"rows"`
}

// ColumnCount returns the number of columns in the table.
func (t *MessageTable) ColumnCount() int {
	return len(t.Header)
}

// ColumnValues returns the raw cells of column i, one per row.
func (t *MessageTable) ColumnValues(i int) []string {
	values := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			values[r] = row[i]
		}
	}
	return values
}

// FlightInfo identifies the flight a log belongs to.
type FlightInfo struct {
	Date   string `json:"date" msgpack:"date"`
	Number string `json:"number" msgpack:"number"`
}

// Column is a labelled, unit-annotated series.
type Column struct {
	DisplayName  string    `json:"displayName" msgpack:"name"`
	Unit         string    `json:"unit" msgpack:"unit"`
	MessageType  string    `json:"messageType" msgpack:"type"`
	FlightDate   string    `json:"flightDate" msgpack:"date"`
	FlightNumber string    `json:"flightNumber" msgpack:"flight"`
	Values       []float64 `json:"values" msgpack:"values"`
	// Text keeps the raw cells of columns that are not purely numeric.
	Text []string `json:"text,omitempty" msgpack:"text,omitempty"`
}

// HasUnit reports whether the column carries a real unit.
func (c *Column) HasUnit() bool {
	return c.Unit != "" && c.Unit != UnitNone && c.Unit != UnitUnavailable
}

// Len returns the number of samples.
func (c *Column) Len() int {
	return len(c.Values)
}

// MarshalJSON writes NaN samples as null.
func (c Column) MarshalJSON() ([]byte, error) {
	type plain Column
	values := make([]*float64, len(c.Values))
	for i := range c.Values {
		if !math.IsNaN(c.Values[i]) && !math.IsInf(c.Values[i], 0) {
			values[i] = &c.Values[i]
		}
	}
	return json.Marshal(struct {
		plain
		Values []*float64 `json:"values"`
	}{plain: plain(c), Values: values})
}

// ValuesEntry groups the columns of one time-aligned table.
// Every column shares the entry's MessageType.
type ValuesEntry struct {
	MessageType string   `json:"messageType" msgpack:"type"`
	Columns     []Column `json:"columns" msgpack:"columns"`
}

// Column returns the first column whose display name matches name
// case-insensitively.
func (e *ValuesEntry) Column(name string) (*Column, bool) {
	for i := range e.Columns {
		if strings.EqualFold(e.Columns[i].DisplayName, name) {
			return &e.Columns[i], true
		}
	}
	return nil, false
}

// ValuesList is the canonical in-memory model of a converted flight.
type ValuesList struct {
	Entries []ValuesEntry `json:"entries" msgpack:"entries"`
}

// Len returns the number of entries.
func (v *ValuesList) Len() int {
	return len(v.Entries)
}

// MessageTypes returns the distinct message type names in entry order.
func (v *ValuesList) MessageTypes() []string {
	seen := make(map[string]struct{}, len(v.Entries))
	types := make([]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		if _, ok := seen[e.MessageType]; ok {
			continue
		}
		seen[e.MessageType] = struct{}{}
		types = append(types, e.MessageType)
	}
	return types
}

// ColumnCount returns the total number of columns over all entries.
func (v *ValuesList) ColumnCount() int {
	n := 0
	for _, e := range v.Entries {
		n += len(e.Columns)
	}
	return n
}
