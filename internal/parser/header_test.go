package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uav-flightlog/backend/internal/models"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		header string
		want   HeaderInfo
	}{
		{
			header: "Altitude_m_GPS_20190123_Flight2",
			want:   HeaderInfo{DisplayName: "Altitude", Unit: "m", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"},
		},
		{
			header: "Satellites_GPS_20190123_Flight2",
			want:   HeaderInfo{DisplayName: "Satellites", Unit: models.UnitNone, MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"},
		},
		{
			header: "GMS_unavailable_GPS_20190123_Flight2",
			want:   HeaderInfo{DisplayName: "GMS", Unit: models.UnitUnavailable, MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"},
		},
		{
			header: "climb rate_m_per_s_BARO_20190123_Flight12",
			want:   HeaderInfo{DisplayName: "Climb rate", Unit: "m s^{-1}", MessageType: "BARO", FlightDate: "20190123", FlightNumber: "12"},
		},
		{
			header: "accel_x_mpers2_IMU_20190123_Flight1",
			want:   HeaderInfo{DisplayName: "Accel x", Unit: "m s^{-2}", MessageType: "IMU", FlightDate: "20190123", FlightNumber: "1"},
		},
		{
			header: "Accel_mpers2_IMU_20190123_Flight1",
			want:   HeaderInfo{DisplayName: "Accel", Unit: "m s^{-2}", MessageType: "IMU", FlightDate: "20190123", FlightNumber: "1"},
		},
		{
			header: "Desired roll_m_per_s_per_s_ATT_20190123_Flight3",
			want:   HeaderInfo{DisplayName: "Desired roll", Unit: "m s^{-2}", MessageType: "ATT", FlightDate: "20190123", FlightNumber: "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ParseHeader(tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHeader_Malformed(t *testing.T) {
	for _, header := range []string{
		"",
		"Altitude_GPS_20190123",
		"Altitude_m_GPS_20190123_F2",
		"_m_GPS_20190123_Flight2",
		"Altitude__20190123_Flight2",
	} {
		t.Run(header, func(t *testing.T) {
			_, err := ParseHeader(header)
			assert.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	columns := []HeaderInfo{
		{DisplayName: "Altitude", Unit: "m", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"},
		{DisplayName: "Fix status", Unit: models.UnitNone, MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"},
		{DisplayName: "GMS", Unit: models.UnitUnavailable, MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"},
		{DisplayName: "Ground speed", Unit: "m s^{-1}", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"},
		{DisplayName: "Time", Unit: "s", MessageType: "BARO", FlightDate: "2019-01-23", FlightNumber: "10"},
		{DisplayName: "Battery voltage", Unit: "V", MessageType: "BAT", FlightDate: "20190123", FlightNumber: "1"},
	}

	for _, want := range columns {
		t.Run(want.DisplayName, func(t *testing.T) {
			got, err := ParseHeader(EncodeHeader(want))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestHeaderRoundTrip_RatioUnits(t *testing.T) {
	tests := []struct {
		display string
		unit    string
		want    string
	}{
		{"Ground speed", "m_per_s", "m s^{-1}"},
		{"Temp rate", "deg_C_per_s", "deg C s^{-1}"},
		{"Climb accel", "m_per_s_per_s", "m s^{-2}"},
		{"Flow", "cubic_m_per_s2", "cubic m s^{-2}"},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			header := EncodeHeader(HeaderInfo{DisplayName: tt.display, Unit: tt.unit, MessageType: "BAT", FlightDate: "20190123", FlightNumber: "1"})
			got, err := ParseHeader(header)
			require.NoError(t, err)
			assert.Equal(t, tt.display, got.DisplayName)
			assert.Equal(t, tt.want, got.Unit)
			assert.Equal(t, NormalizeUnit(tt.unit), got.Unit)
		})
	}
}

func TestEncodeHeader(t *testing.T) {
	assert.Equal(t, "Altitude_m_GPS_20190123_Flight2",
		EncodeHeader(HeaderInfo{DisplayName: "Altitude", Unit: "m", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"}))
	assert.Equal(t, "Fix status_GPS_20190123_Flight2",
		EncodeHeader(HeaderInfo{DisplayName: "Fix_status", Unit: models.UnitNone, MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"}))
	assert.Equal(t, "Speed_m_per_s_GPS_20190123_Flight2",
		EncodeHeader(HeaderInfo{DisplayName: "Speed", Unit: "m_per_s", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"}))
	assert.Equal(t, "Temp rate_deg C_per_s_BAT_20190123_Flight2",
		EncodeHeader(HeaderInfo{DisplayName: "Temp_rate", Unit: "deg_C_per_s", MessageType: "BAT", FlightDate: "20190123", FlightNumber: "2"}))
	assert.Equal(t, "Count_GPS_20190123_Flight2",
		EncodeHeader(HeaderInfo{DisplayName: "Count", MessageType: "GPS", FlightDate: "20190123", FlightNumber: "2"}))
}

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"mpers2", "m s^{-2}"},
		{"m_per_s_per_s", "m s^{-2}"},
		{"m_per_s", "m s^{-1}"},
		{"mpers", "m s^{-1}"},
		{"rad_per_s2_per_s", "rad s^{-3}"},
		{"kg_per_m3", "kg m^{-3}"},
		{"m", "m"},
		{"percent", "percent"},
		{"Ampere", "Ampere"},
		{"m s^{-2}", "m s^{-2}"},
		{"per_s", "per_s"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeUnit(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeUnit(got), "normalization is idempotent")
		})
	}
}

func TestColumnFromHeader(t *testing.T) {
	col, err := ColumnFromHeader("Altitude_m_GPS_20190123_Flight2")
	require.NoError(t, err)
	assert.Equal(t, "Altitude", col.DisplayName)
	assert.Equal(t, "2", col.FlightNumber)
	assert.Empty(t, col.Values)

	assert.Equal(t, "Altitude_m_GPS_20190123_Flight2", EncodeHeader(HeaderOf(&col)))
}
