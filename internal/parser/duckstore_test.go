// duckstore_test.go - Tests for the DuckDB export of converted values
package parser

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uav-flightlog/backend/internal/models"
	"go.uber.org/zap"
)

func exportValues() models.ValuesList {
	return models.ValuesList{Entries: []models.ValuesEntry{
		{MessageType: "GPS", Columns: []models.Column{
			{DisplayName: "Altitude", Unit: "m", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2", Values: []float64{35.2, 36.4, 37.8}},
			{DisplayName: "Time", Unit: "s", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2", Values: []float64{1, 2, 3}},
		}},
		{MessageType: "MSG", Columns: []models.Column{
			{DisplayName: "Message", Unit: models.UnitNone, MessageType: "MSG", FlightDate: "20190123", FlightNumber: "2",
				Values: []float64{math.NaN()}, Text: []string{"ArduPlane V4.3"}},
			{DisplayName: "Time", Unit: "s", MessageType: "MSG", FlightDate: "20190123", FlightNumber: "2", Values: []float64{1.5}},
		}},
	}}
}

func TestExportValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flight.duckdb")

	require.NoError(t, ExportValues(ctx, path, exportValues(), zap.NewNop()))
	_, err := os.Stat(path)
	require.NoError(t, err)

	ds, err := OpenDuckStoreReadOnly(path, nil)
	require.NoError(t, err)
	defer ds.Close()
	assert.Equal(t, 2, ds.Len())

	tables, err := ds.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ExportedTable{
		{Name: "gps_0", EntryIndex: 0, MessageType: "GPS", Columns: 2},
		{Name: "msg_1", EntryIndex: 1, MessageType: "MSG", Columns: 2},
	}, tables)

	loaded, err := ds.LoadValues(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, exportValues().Entries[0], loaded.Entries[0])

	msg := loaded.Entries[1].Columns[0]
	assert.Equal(t, []string{"ArduPlane V4.3"}, msg.Text)
	assert.True(t, math.IsNaN(msg.Values[0]))
	assert.Equal(t, []float64{1.5}, loaded.Entries[1].Columns[1].Values)

	_, err = ds.AddEntry(ctx, 5, exportValues().Entries[0])
	assert.Error(t, err, "read-only store rejects writes")
}

func TestDuckStore_NullsAndDuplicates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dup.duckdb")

	ds, err := NewDuckStoreAtPath(path, nil)
	require.NoError(t, err)

	entry := models.ValuesEntry{MessageType: "BAT 1", Columns: []models.Column{
		{DisplayName: "Volt", Unit: "V", MessageType: "BAT 1", Values: []float64{12.1, math.NaN()}},
		{DisplayName: "Volt", Unit: "V", MessageType: "BAT 1", Values: []float64{12.0}},
		{DisplayName: "Time", Unit: "s", MessageType: "BAT 1", Values: []float64{1, 2}},
	}}
	name, err := ds.AddEntry(ctx, 0, entry)
	require.NoError(t, err)
	assert.Equal(t, "bat_1_0", name)

	empty, err := ds.AddEntry(ctx, 1, models.ValuesEntry{MessageType: "EMPTY"})
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, ds.Finalize())
	loaded, err := ds.LoadValues(ctx)
	require.NoError(t, err)
	require.NoError(t, ds.Close())

	cols := loaded.Entries[0].Columns
	require.Len(t, cols, 3)
	assert.Equal(t, 12.1, cols[0].Values[0])
	assert.True(t, math.IsNaN(cols[0].Values[1]))
	assert.Len(t, cols[1].Values, 2, "short columns are padded with NULL")
	assert.True(t, math.IsNaN(cols[1].Values[1]))
}

func TestDuckStore_CaseOnlyDuplicates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "case.duckdb")

	values := models.ValuesList{Entries: []models.ValuesEntry{
		{MessageType: "BAT", Columns: []models.Column{
			{DisplayName: "Volt", Unit: "V", MessageType: "BAT", Values: []float64{12.1}},
			{DisplayName: "VOLT", Unit: "V", MessageType: "BAT", Values: []float64{12.2}},
			{DisplayName: "Time", Unit: "s", MessageType: "BAT", Values: []float64{1}},
		}},
	}}
	require.NoError(t, ExportValues(ctx, path, values, nil))

	ds, err := OpenDuckStoreReadOnly(path, nil)
	require.NoError(t, err)
	defer ds.Close()

	loaded, err := ds.LoadValues(ctx)
	require.NoError(t, err)
	cols := loaded.Entries[0].Columns
	require.Len(t, cols, 3)
	assert.Equal(t, "VOLT", cols[1].DisplayName)
	assert.Equal(t, []float64{12.2}, cols[1].Values)
}

func TestExportValues_ReplacesWithoutLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "flight.duckdb")

	require.NoError(t, ExportValues(ctx, path, exportValues(), nil))
	one := models.ValuesList{Entries: exportValues().Entries[:1]}
	require.NoError(t, ExportValues(ctx, path, one, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "flight.duckdb", entries[0].Name())

	ds, err := OpenDuckStoreReadOnly(path, nil)
	require.NoError(t, err)
	defer ds.Close()
	assert.Equal(t, 1, ds.Len())
}

func TestOpenDuckStoreReadOnly_Missing(t *testing.T) {
	_, err := OpenDuckStoreReadOnly(filepath.Join(t.TempDir(), "missing.duckdb"), nil)
	assert.Error(t, err)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "gps_0", tableName("GPS", 0))
	assert.Equal(t, "bat_1_3", tableName("BAT 1", 3))
	assert.Equal(t, "x_kf_12", tableName("X-KF", 12))
}
