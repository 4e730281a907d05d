package parser

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uav-flightlog/backend/internal/models"
)

// sampleValues runs the sample log through the full table pipeline.
func sampleValues(t *testing.T) models.ValuesList {
	t.Helper()
	tables, warnings := Materialize(parseSample(t), newSampleRegistry(t), sampleFlight)
	require.Empty(t, warnings)
	aligned, warnings := AlignAll(tables)
	require.Empty(t, warnings)
	values, warnings := BuildValues(aligned)
	require.Empty(t, warnings)
	return values
}

func TestBuildValues_SampleLog(t *testing.T) {
	values := sampleValues(t)

	require.Equal(t, 3, values.Len())
	assert.Equal(t, []string{"GPS", "BARO", "MSG"}, values.MessageTypes())

	gps := values.Entries[0]
	for _, col := range gps.Columns {
		assert.Equal(t, "GPS", col.MessageType)
		assert.Equal(t, "20190123", col.FlightDate)
		assert.Equal(t, "2", col.FlightNumber)
	}

	alt, ok := gps.Column("altitude")
	require.True(t, ok)
	assert.Equal(t, "m", alt.Unit)
	assert.Equal(t, []float64{35.2, 36.4, 37.8}, alt.Values)
	assert.Nil(t, alt.Text)

	tm, ok := gps.Column("Time")
	require.True(t, ok)
	assert.Equal(t, "s", tm.Unit)
	assert.Equal(t, []float64{1, 2, 3}, tm.Values)

	speed, ok := gps.Column("Ground speed")
	require.True(t, ok)
	assert.Equal(t, "m s^{-1}", speed.Unit)

	gms, ok := gps.Column("GMS")
	require.True(t, ok)
	assert.Equal(t, models.UnitUnavailable, gms.Unit)
	assert.False(t, gms.HasUnit())

	msg := values.Entries[2]
	text, ok := msg.Column("Message")
	require.True(t, ok)
	assert.Equal(t, []string{"ArduPlane V4.3"}, text.Text)
	assert.True(t, math.IsNaN(text.Values[0]))
}

func TestBuildValues_SkipsForeignColumns(t *testing.T) {
	tables := []models.MessageTable{{
		MessageType: "GPS",
		Header: []string{
			"Altitude_m_BARO_20190123_Flight2",
			"not a header",
			"Time_s_GPS_20190123_Flight2",
		},
		Rows: [][]string{{"1", "2", "3"}},
	}}

	values, warnings := BuildValues(tables)
	require.Equal(t, 1, values.Len())
	assert.Len(t, values.Entries[0].Columns, 1)
	assert.Len(t, warnings, 2)
}

func TestBuildValues_EmptyCells(t *testing.T) {
	tables := []models.MessageTable{{
		MessageType: "BARO",
		Header:      []string{"Altitude_m_BARO_20190123_Flight2", "Time_s_BARO_20190123_Flight2"},
		Rows:        [][]string{{"", "1"}, {"2.5", "2"}},
	}}

	values, _ := BuildValues(tables)
	alt := values.Entries[0].Columns[0]
	assert.True(t, math.IsNaN(alt.Values[0]))
	assert.Equal(t, 2.5, alt.Values[1])
	assert.Nil(t, alt.Text, "empty cells alone do not make a column textual")
}
