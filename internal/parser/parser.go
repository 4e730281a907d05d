package parser

import (
	"math"
	"strconv"
	"strings"
)

// Parser defines the interface for telemetry log parsers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser can handle the given file.
	CanParse(filePath string) (bool, error)
	// ParseFile parses the entire file.
	ParseFile(filePath string) (*ParsedLog, error)
}

// ParseNumeric converts a raw cell to a float64. Empty and non-numeric
// cells return NaN and false.
// Optimized to avoid strconv.ParseFloat for plain integers.
func ParseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return math.NaN(), false
	}

	if isIntegerFast(s) {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(v), true
		}
	}

	if isHexInteger(s) {
		if v, err := strconv.ParseInt(s, 0, 64); err == nil {
			return float64(v), true
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false
	}
	return v, true
}

// IsNumeric reports whether a raw cell parses as a number.
func IsNumeric(raw string) bool {
	_, ok := ParseNumeric(raw)
	return ok
}

// isIntegerFast checks if a string is a plain decimal integer without
// using regex or allocating.
func isIntegerFast(s string) bool {
	if len(s) == 0 {
		return false
	}

	i := 0
	// Skip optional sign
	if s[0] == '+' || s[0] == '-' {
		i++
		if i >= len(s) {
			return false
		}
	}

	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// isHexInteger matches "0x1F" with an optional sign.
func isHexInteger(s string) bool {
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if len(s) < i+3 {
		return false
	}
	if s[i] != '0' || (s[i+1] != 'x' && s[i+1] != 'X') {
		return false
	}
	for _, c := range s[i+2:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// FormatNumeric renders a value the way a log cell would carry it.
func FormatNumeric(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
