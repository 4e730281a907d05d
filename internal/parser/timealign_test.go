package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uav-flightlog/backend/internal/models"
)

func TestIsTimeColumn(t *testing.T) {
	assert.True(t, IsTimeColumn("Time"))
	assert.True(t, IsTimeColumn("GPS TIME"))
	assert.True(t, IsTimeColumn("Uptime"))
	assert.False(t, IsTimeColumn("Altitude"))
}

func TestAlign_RescalesMicroseconds(t *testing.T) {
	table := models.MessageTable{
		MessageType: "GPS",
		Header:      []string{"Altitude_m_GPS_20190123_Flight2", "Time_US_GPS_20190123_Flight2"},
		Rows:        [][]string{{"35.2", "1500000"}, {"36.4", "2000000"}},
	}

	groups, err := Align(table)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	aligned := groups[0]
	assert.Equal(t, "Time_s_GPS_20190123_Flight2", aligned.Header[1])
	assert.Equal(t, [][]string{{"35.2", "1.5"}, {"36.4", "2"}}, aligned.Rows)
	assert.Equal(t, "1500000", table.Rows[0][1], "input is not modified")

	again, err := Align(aligned)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, aligned, again[0], "aligning an aligned table changes nothing")
}

func TestAlign_RescalesUnregisteredMicroseconds(t *testing.T) {
	table := models.MessageTable{
		MessageType: "CMD",
		Header:      []string{"CTot_unavailable_CMD_20190123_Flight2", "TimeUS_unavailable_CMD_20190123_Flight2"},
		Rows:        [][]string{{"4", "2500000"}},
	}

	groups, err := Align(table)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Time_s_CMD_20190123_Flight2", groups[0].Header[1])
	assert.Equal(t, "2.5", groups[0].Rows[0][1])

	again, err := Align(groups[0])
	require.NoError(t, err)
	assert.Equal(t, groups[0], again[0])

	plain := models.MessageTable{
		MessageType: "CMD",
		Header:      []string{"Boot time_unavailable_CMD_20190123_Flight2"},
		Rows:        [][]string{{"1500"}},
	}
	groups, err = Align(plain)
	require.NoError(t, err)
	assert.Equal(t, plain.Header, groups[0].Header, "unregistered time without a US suffix is left alone")
	assert.Equal(t, "1500", groups[0].Rows[0][0])
}

func TestAlign_OtherTimeUnitsUntouched(t *testing.T) {
	table := models.MessageTable{
		MessageType: "MSG",
		Header:      []string{"Message_MSG_20190123_Flight2", "Boot time_ms_MSG_20190123_Flight2"},
		Rows:        [][]string{{"hello", "1500"}},
	}

	groups, err := Align(table)
	require.NoError(t, err)
	assert.Equal(t, table.Header, groups[0].Header)
	assert.Equal(t, "1500", groups[0].Rows[0][1])
}

func TestAlign_Grouping(t *testing.T) {
	header := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = n + "_s_XKF_20190123_Flight1"
		}
		return out
	}

	tests := []struct {
		name    string
		header  []string
		groups  [][]int
		wantErr bool
	}{
		{"single group", header("A", "B", "Time"), [][]int{{0, 1, 2}}, false},
		{"two groups", header("A", "Time", "B", "C", "Sample time"), [][]int{{0, 1}, {2, 3, 4}}, false},
		{"adjacent time columns", header("A", "Time", "Sample time"), [][]int{{0, 1}, {2}}, false},
		{"trailing columns", header("A", "Time", "B"), nil, true},
		{"no time column", header("A", "B"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := make([]string, len(tt.header))
			for i := range row {
				row[i] = string(rune('a' + i))
			}
			table := models.MessageTable{MessageType: "XKF", Header: tt.header, Rows: [][]string{row}}

			groups, err := Align(table)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUngroupedColumns)
				assert.Nil(t, groups)
				return
			}
			require.NoError(t, err)
			require.Len(t, groups, len(tt.groups))
			for g, idx := range tt.groups {
				timeCols := 0
				for k, i := range idx {
					assert.Equal(t, tt.header[i], groups[g].Header[k])
					assert.Equal(t, row[i], groups[g].Rows[0][k])
					info, err := ParseHeader(groups[g].Header[k])
					require.NoError(t, err)
					if IsTimeColumn(info.DisplayName) {
						timeCols++
					}
				}
				assert.Equal(t, 1, timeCols, "group %d has exactly one time column", g)
				assert.True(t, IsTimeColumn(groups[g].Header[len(idx)-1]), "group ends at its time column")
			}
		})
	}
}

func TestAlignAll_SkipsUngroupable(t *testing.T) {
	tables := []models.MessageTable{
		{MessageType: "BAD", Header: []string{"A_m_BAD_20190123_Flight1"}, Rows: [][]string{{"1"}}},
		{MessageType: "GPS", Header: []string{"A_m_GPS_20190123_Flight1", "Time_US_GPS_20190123_Flight1"}, Rows: [][]string{{"1", "2000000"}}},
	}

	aligned, warnings := AlignAll(tables)
	require.Len(t, aligned, 1)
	assert.Equal(t, "GPS", aligned[0].MessageType)
	require.Len(t, warnings, 1)
	assert.Equal(t, "BAD", warnings[0].Content)

	empty, err := Align(models.MessageTable{MessageType: "X"})
	assert.NoError(t, err)
	assert.Empty(t, empty)
}
