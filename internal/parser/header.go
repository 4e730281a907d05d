package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/uav-flightlog/backend/internal/models"
)

// headerSep separates the segments of a composite column header.
const headerSep = "_"

// flightPrefix starts the last segment of a composite header.
const flightPrefix = "Flight"

// HeaderInfo is the decoded form of a composite column header
// "{display}_{unit}_{type}_{date}_Flight{n}". The unit segment is absent
// when the column has no unit.
type HeaderInfo struct {
	DisplayName  string
	Unit         string
	MessageType  string
	FlightDate   string
	FlightNumber string
}

// EncodeHeader composes the composite header string for a column.
// Underscores inside the display name, inside units that are not "per"
// ratios and inside a ratio's numerator become spaces so the string stays
// parseable.
func EncodeHeader(h HeaderInfo) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(h.DisplayName, headerSep, " "))
	b.WriteString(headerSep)
	if unit := encodeUnit(h.Unit); unit != "" {
		b.WriteString(unit)
		b.WriteString(headerSep)
	}
	b.WriteString(h.MessageType)
	b.WriteString(headerSep)
	b.WriteString(h.FlightDate)
	b.WriteString(headerSep)
	b.WriteString(flightPrefix)
	b.WriteString(h.FlightNumber)
	return b.String()
}

func encodeUnit(unit string) string {
	switch unit {
	case "", models.UnitNone:
		return ""
	case models.UnitUnavailable:
		return models.UnitUnavailable
	}
	tokens := strings.Split(unit, headerSep)
	// A ratio keeps its "per" separators; its numerator is folded into a
	// single token so the parser finds the unit boundary before it.
	if idx := ratioTokenIndex(tokens); idx > 0 {
		numerator := strings.Join(tokens[:idx], " ")
		return numerator + headerSep + strings.Join(tokens[idx:], headerSep)
	}
	return strings.ReplaceAll(unit, headerSep, " ")
}

// ParseHeader decodes a composite header. The last three segments are the
// message type, the flight date and "Flight<n>"; what remains is the display
// name followed by an optional unit.
func ParseHeader(header string) (HeaderInfo, error) {
	tokens := strings.Split(header, headerSep)
	n := len(tokens)
	if n < 4 {
		return HeaderInfo{}, fmt.Errorf("%w: %q has %d segments", ErrMalformedHeader, header, n)
	}

	flight := tokens[n-1]
	if !strings.HasPrefix(flight, flightPrefix) {
		return HeaderInfo{}, fmt.Errorf("%w: %q does not end with %s<n>", ErrMalformedHeader, header, flightPrefix)
	}

	info := HeaderInfo{
		MessageType:  tokens[n-3],
		FlightDate:   tokens[n-2],
		FlightNumber: strings.TrimPrefix(flight, flightPrefix),
	}
	if info.MessageType == "" {
		return HeaderInfo{}, fmt.Errorf("%w: %q has an empty message type", ErrMalformedHeader, header)
	}

	prefix := tokens[:n-3]
	if prefix[0] == "" {
		return HeaderInfo{}, fmt.Errorf("%w: %q has an empty display name", ErrMalformedHeader, header)
	}

	var display, unit string
	switch len(prefix) {
	case 1:
		display = prefix[0]
	case 2:
		display, unit = prefix[0], prefix[1]
	default:
		// The unit boundary is the numerator of a "per" ratio when one is
		// present, otherwise the last token.
		boundary := len(prefix) - 1
		if idx := ratioTokenIndex(prefix); idx > 1 {
			boundary = idx - 1
		}
		display = strings.Join(prefix[:boundary], " ")
		unit = strings.Join(prefix[boundary:], headerSep)
	}

	info.DisplayName = capitalize(display)
	if unit == "" {
		info.Unit = models.UnitNone
	} else {
		info.Unit = NormalizeUnit(unit)
	}
	return info, nil
}

// ratioTokenIndex returns the index of the first "per" token, or -1.
func ratioTokenIndex(tokens []string) int {
	for i, t := range tokens {
		if strings.EqualFold(t, "per") {
			return i
		}
	}
	return -1
}

// capitalize upper-cases the first letter of s.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// nonRatioUnits contain "per" without being a ratio.
var nonRatioUnits = map[string]struct{}{
	"ampere":   {},
	"amperes":  {},
	"percent":  {},
	"per cent": {},
}

// NormalizeUnit rewrites a "per" unit into numerator and negative-exponent
// denominators: "m_per_s_per_s" and "mpers2" both become "m s^{-2}".
// Repeated denominators are merged by summing exponents; a trailing digit on
// a denominator is its exponent. Units without "per" are returned unchanged,
// so normalizing twice is a no-op.
func NormalizeUnit(unit string) string {
	lower := strings.ToLower(unit)
	if !strings.Contains(lower, "per") {
		return unit
	}
	if _, ok := nonRatioUnits[lower]; ok {
		return unit
	}

	var parts []string
	if strings.Contains(unit, headerSep) {
		tokens := strings.Split(unit, headerSep)
		current := make([]string, 0, 2)
		for _, t := range tokens {
			if strings.EqualFold(t, "per") {
				parts = append(parts, strings.Join(current, " "))
				current = current[:0]
				continue
			}
			current = append(current, t)
		}
		parts = append(parts, strings.Join(current, " "))
	} else {
		parts = splitFold(unit, "per")
	}

	numerator := strings.TrimSpace(parts[0])
	if numerator == "" || len(parts) < 2 {
		return unit
	}

	order := make([]string, 0, len(parts)-1)
	exps := make(map[string]int, len(parts)-1)
	for _, den := range parts[1:] {
		base, exp, ok := splitExponent(strings.TrimSpace(den))
		if !ok {
			return unit
		}
		if _, seen := exps[base]; !seen {
			order = append(order, base)
		}
		exps[base] += exp
	}

	var b strings.Builder
	b.WriteString(numerator)
	for _, base := range order {
		b.WriteString(" ")
		b.WriteString(base)
		b.WriteString("^{-")
		b.WriteString(strconv.Itoa(exps[base]))
		b.WriteString("}")
	}
	return b.String()
}

// splitExponent splits "s2" into ("s", 2); a denominator without trailing
// digits has exponent 1.
func splitExponent(den string) (string, int, bool) {
	if den == "" {
		return "", 0, false
	}
	end := len(den)
	for end > 0 && den[end-1] >= '0' && den[end-1] <= '9' {
		end--
	}
	base := den[:end]
	if base == "" {
		return "", 0, false
	}
	exp := 1
	if end < len(den) {
		v, err := strconv.Atoi(den[end:])
		if err != nil || v == 0 {
			return "", 0, false
		}
		exp = v
	}
	return base, exp, true
}

// splitFold splits s around case-insensitive occurrences of sep.
func splitFold(s, sep string) []string {
	lower := strings.ToLower(s)
	var parts []string
	start := 0
	for {
		idx := strings.Index(lower[start:], sep)
		if idx < 0 {
			parts = append(parts, s[start:])
			return parts
		}
		parts = append(parts, s[start:start+idx])
		start += idx + len(sep)
	}
}

// ColumnFromHeader builds an empty Column from a composite header.
func ColumnFromHeader(header string) (models.Column, error) {
	info, err := ParseHeader(header)
	if err != nil {
		return models.Column{}, err
	}
	return models.Column{
		DisplayName:  info.DisplayName,
		Unit:         info.Unit,
		MessageType:  info.MessageType,
		FlightDate:   info.FlightDate,
		FlightNumber: info.FlightNumber,
	}, nil
}

// HeaderOf returns the header fields of a column.
func HeaderOf(c *models.Column) HeaderInfo {
	return HeaderInfo{
		DisplayName:  c.DisplayName,
		Unit:         c.Unit,
		MessageType:  c.MessageType,
		FlightDate:   c.FlightDate,
		FlightNumber: c.FlightNumber,
	}
}
