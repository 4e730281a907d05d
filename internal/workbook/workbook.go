// Package workbook stores message tables as an xlsx workbook: one sheet per
// message type with composite headers, plus reserved key/value sheets.
package workbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/uav-flightlog/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// ReservedPrefix starts the name of every sheet that is not a message table.
const ReservedPrefix = "_"

// Reserved sheet names used by the report layer.
const (
	SheetWeather = "_weather"
	SheetRunway  = "_runway"
)

const defaultSheet = "Sheet1"

// Workbook is the content of a converted flight workbook.
type Workbook struct {
	Tables []models.MessageTable
	// Aux maps a reserved sheet name to its key/value pairs.
	Aux map[string]map[string]string
}

// IsReserved reports whether a sheet name is a reserved sheet.
func IsReserved(sheet string) bool {
	return strings.HasPrefix(sheet, ReservedPrefix)
}

// Write saves the tables and the reserved sheets to path. Each table becomes
// a sheet named after its message type whose first row is the header.
// Reserved sheets hold one header row of keys and one row of values. The
// file is written next to path and renamed into place, so readers never
// see a partial workbook.
func Write(path string, tables []models.MessageTable, aux map[string]map[string]string) error {
	staged, err := WriteStaged(path, tables, aux)
	if err != nil {
		return err
	}
	return Publish(staged, path)
}

// WriteStaged writes the workbook to a new private file in the directory of
// path and returns its name. The caller reads it back or publishes it with
// Publish; on error nothing is left behind.
func WriteStaged(path string, tables []models.MessageTable, aux map[string]map[string]string) (string, error) {
	f, err := build(tables, aux)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ext := filepath.Ext(path)
	pattern := "." + strings.TrimSuffix(filepath.Base(path), ext) + "-*" + ext
	tmp, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("saving workbook: %w", err)
	}
	return tmp.Name(), nil
}

// Publish moves a staged workbook to path, replacing any previous file.
func Publish(staged, path string) error {
	if err := os.Rename(staged, path); err != nil {
		os.Remove(staged)
		return fmt.Errorf("publishing workbook: %w", err)
	}
	return nil
}

func build(tables []models.MessageTable, aux map[string]map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()

	written := 0
	for _, table := range tables {
		if IsReserved(table.MessageType) {
			f.Close()
			return nil, fmt.Errorf("message type %q uses the reserved sheet prefix", table.MessageType)
		}
		if err := writeTable(f, table); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing sheet %s: %w", table.MessageType, err)
		}
		written++
	}

	names := make([]string, 0, len(aux))
	for name := range aux {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sheet := name
		if !IsReserved(sheet) {
			sheet = ReservedPrefix + sheet
		}
		if err := writeKeyValues(f, sheet, aux[name]); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing sheet %s: %w", sheet, err)
		}
		written++
	}

	if written > 0 && !hasSheet(tables, defaultSheet) {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			f.Close()
			return nil, err
		}
		f.SetActiveSheet(0)
	}
	return f, nil
}

func hasSheet(tables []models.MessageTable, name string) bool {
	for _, t := range tables {
		if t.MessageType == name {
			return true
		}
	}
	return false
}

func writeTable(f *excelize.File, table models.MessageTable) error {
	if _, err := f.NewSheet(table.MessageType); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(table.MessageType)
	if err != nil {
		return err
	}

	if err := setRow(sw, 1, stringCells(table.Header)); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := setRow(sw, i+2, valueCells(row)); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeKeyValues(f *excelize.File, sheet string, kv map[string]string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = kv[k]
	}
	if err := f.SetSheetRow(sheet, "A1", &keys); err != nil {
		return err
	}
	return f.SetSheetRow(sheet, "A2", &values)
}

func setRow(sw *excelize.StreamWriter, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return sw.SetRow(cell, cells)
}

func stringCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// valueCells stores a cell as a number when its text is the canonical form
// of that number, so reading it back yields the same text.
func valueCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		if n, err := strconv.ParseFloat(v, 64); err == nil && strconv.FormatFloat(n, 'f', -1, 64) == v {
			cells[i] = n
			continue
		}
		cells[i] = v
	}
	return cells
}

// Read loads a workbook written by Write. Sheets are returned in workbook
// order; reserved sheets go to Aux.
func Read(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{Aux: make(map[string]map[string]string)}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}

		if IsReserved(sheet) {
			wb.Aux[sheet] = keyValues(rows)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		wb.Tables = append(wb.Tables, table(sheet, rows))
	}
	return wb, nil
}

func table(sheet string, rows [][]string) models.MessageTable {
	header := rows[0]
	t := models.MessageTable{
		MessageType: sheet,
		Header:      header,
		Rows:        make([][]string, 0, len(rows)-1),
	}
	for _, row := range rows[1:] {
		// Trailing empty cells are not stored.
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func keyValues(rows [][]string) map[string]string {
	kv := make(map[string]string)
	if len(rows) == 0 {
		return kv
	}
	for i, key := range rows[0] {
		if key == "" {
			continue
		}
		value := ""
		if len(rows) > 1 && i < len(rows[1]) {
			value = rows[1][i]
		}
		kv[key] = value
	}
	return kv
}
