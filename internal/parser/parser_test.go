package parser

import (
	"math"
	"testing"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{"-17", -17, true},
		{"+5", 5, true},
		{" 3.25 ", 3.25, true},
		{"1e6", 1e6, true},
		{"0x1F", 31, true},
		{"-0x10", -16, true},
		{"0x", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"ArduPlane", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseNumeric(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ParseNumeric(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if !ok {
				if !math.IsNaN(got) {
					t.Errorf("ParseNumeric(%q) = %v, want NaN", tt.raw, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseNumeric(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatNumeric(t *testing.T) {
	if got := FormatNumeric(1.5); got != "1.5" {
		t.Errorf("expected 1.5, got %s", got)
	}
	if got := FormatNumeric(2); got != "2" {
		t.Errorf("expected 2, got %s", got)
	}
	if got := FormatNumeric(math.NaN()); got != "" {
		t.Errorf("expected empty string for NaN, got %q", got)
	}
	if !IsNumeric("0.001") || IsNumeric("abc") {
		t.Error("IsNumeric mismatch")
	}
}

func BenchmarkParseNumeric(b *testing.B) {
	cells := []string{"1000000", "35.2", "-0.12", "ArduPlane V4.3", "0x1F"}
	for i := 0; i < b.N; i++ {
		for _, c := range cells {
			ParseNumeric(c)
		}
	}
}
