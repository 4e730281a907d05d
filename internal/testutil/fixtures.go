// fixtures.go - Sample flight logs and registries for tests
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleLog is a small FMT-headed log with GPS, BARO, MSG and an
// undeclared-on-the-allow-list ATT type. GPS time is in microseconds.
const SampleLog = `FMT, 128, 89, FMT, BBnNZ, Type,Length,Name,Format,Columns
FMT, 130, 45, GPS, QBIHBcLLe, TimeUS,Status,GMS,GWk,NSats,Lat,Lng,Alt,Spd
FMT, 131, 31, BARO, QffcfIf, TimeUS,Alt,Press,Temp,CRt,SMS,Offset
FMT, 132, 20, ATT, Qcc, TimeUS,Roll,Pitch
FMT, 133, 40, MSG, QZ, TimeUS,Message
FMT, 134, 12, CMD, QH, TimeUS,CTot
GPS, 1000000, 3, 100, 2040, 12, 51.5, -0.12, 35.2, 4.1
GPS, 2000000, 3, 200, 2040, 12, 51.6, -0.13, 36.4, 4.3
BARO, 1000000, 35.0, 101325.0, 21, 0.1, 1000, 0
ATT, 1000000, 1.5, -2.0
GPS, 3000000, 3, 300, 2040, 13, 51.7, -0.14, 37.8, 4.6
MSG, 1500000, ArduPlane V4.3
BARO, 2000000, 36.1, 101300.0, 21, 0.2, 2000, 0
`

// SampleNames is a name/unit registry for SampleLog.
const SampleNames = `message_type, raw_field_name, display_name, unit
GPS, TimeUS, Time, US
GPS, Status, Fix status, no unit
GPS, NSats, Satellites, no unit
GPS, Lat, Latitude, deg
GPS, Lng, Longitude, deg
GPS, Alt, Altitude, m
GPS, Spd, Ground speed, m_per_s
BARO, TimeUS, Time, US
BARO, Alt, Altitude, m
BARO, Press, Pressure, Pa
BARO, Temp, Temperature, degC
BARO, CRt, Climb rate, m_per_s
ATT, TimeUS, Time, US
ATT, Roll, Roll, deg
MSG, TimeUS, Time, US
MSG, Message, Message, no unit
`

// SampleSources is a data-source allow-list for SampleLog. ATT is left out
// and CMD has no data lines.
const SampleSources = `data_source
GPS
BARO
MSG
CMD
`

// SampleCatalog is a plot catalog matching SampleLog.
const SampleCatalog = `plots:
  - name: gps_altitude
    title: GPS altitude
    series:
      - {role: x, field: time, message_type: gps}
      - {role: y, field: altitude, message_type: gps}
  - name: altitude_and_speed
    dual_axis: true
    series:
      - {role: X, field: time, message_type: gps}
      - {role: y, field: altitude, message_type: gps}
      - {role: y2, field: ground speed, message_type: gps}
  - name: attitude
    series:
      - {role: x, field: time, message_type: att}
      - {role: y, field: roll, message_type: att}
`

// SampleFiles holds the paths of the written sample inputs.
type SampleFiles struct {
	Dir     string
	Log     string
	Names   string
	Sources string
	Catalog string
}

// WriteFile writes content to name inside dir and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

// WriteSampleFiles writes the sample log, registries and catalog into a
// fresh temporary directory.
func WriteSampleFiles(t testing.TB) SampleFiles {
	t.Helper()
	dir := t.TempDir()
	return SampleFiles{
		Dir:     dir,
		Log:     WriteFile(t, dir, "00000042.log", SampleLog),
		Names:   WriteFile(t, dir, "registry/names.csv", SampleNames),
		Sources: WriteFile(t, dir, "registry/sources.txt", SampleSources),
		Catalog: WriteFile(t, dir, "plots.yaml", SampleCatalog),
	}
}
