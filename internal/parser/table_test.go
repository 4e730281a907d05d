package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uav-flightlog/backend/internal/models"
)

var sampleFlight = models.FlightInfo{Date: "20190123", Number: "2"}

func TestTimeLastOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "c", "a"}, TimeLastOrder([]string{"a", "b", "c"}))
	assert.Equal(t, []string{"a"}, TimeLastOrder([]string{"a"}))
	assert.Empty(t, TimeLastOrder(nil))
}

func TestMaterialize(t *testing.T) {
	parsed := parseSample(t)
	registry := newSampleRegistry(t)

	tables, warnings := Materialize(parsed, registry, sampleFlight)
	assert.Empty(t, warnings)
	require.Len(t, tables, 3)

	gps := tables[0]
	assert.Equal(t, "GPS", gps.MessageType)
	assert.Equal(t, []string{
		"Fix status_GPS_20190123_Flight2",
		"GMS_unavailable_GPS_20190123_Flight2",
		"GWk_unavailable_GPS_20190123_Flight2",
		"Satellites_GPS_20190123_Flight2",
		"Latitude_deg_GPS_20190123_Flight2",
		"Longitude_deg_GPS_20190123_Flight2",
		"Altitude_m_GPS_20190123_Flight2",
		"Ground speed_m_per_s_GPS_20190123_Flight2",
		"Time_US_GPS_20190123_Flight2",
	}, gps.Header)
	require.Len(t, gps.Rows, 3)
	assert.Equal(t, []string{"3", "100", "2040", "12", "51.5", "-0.12", "35.2", "4.1", "1000000"}, gps.Rows[0])

	assert.Equal(t, "BARO", tables[1].MessageType)
	assert.Len(t, tables[1].Rows, 2)
	assert.Equal(t, "MSG", tables[2].MessageType)
	assert.Equal(t, []string{"Message_MSG_20190123_Flight2", "Time_US_MSG_20190123_Flight2"}, tables[2].Header)
}

func TestMaterialize_RowWidthMismatch(t *testing.T) {
	parsed := &ParsedLog{
		Formats: []models.MessageFormat{{Name: "BARO", Fields: []string{"TimeUS", "Alt", "Press"}}},
		Rows: map[string][]DataRow{
			"BARO": {
				{Line: 2, Values: []string{"1", "2.5"}},
				{Line: 3, Values: []string{"2", "2.6", "1000", "extra"}},
			},
		},
		Seen: map[string]struct{}{"BARO": {}},
	}
	registry := newSampleRegistry(t)

	tables, warnings := Materialize(parsed, registry, sampleFlight)
	require.Len(t, tables, 1)
	require.Len(t, warnings, 2)
	assert.Equal(t, 2, warnings[0].Line)
	assert.Equal(t, []string{"2.5", "", "1"}, tables[0].Rows[0])
	assert.Equal(t, []string{"2.6", "1000", "2"}, tables[0].Rows[1])
}
