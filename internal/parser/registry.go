package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/uav-flightlog/backend/internal/models"
)

// FieldLookup is the result of a name/unit registry lookup.
type FieldLookup struct {
	DisplayName string
	Unit        string // unit text, models.UnitNone or models.UnitUnavailable
	Found       bool
}

type fieldKey struct {
	messageType string
	field       string
}

// SchemaRegistry holds the name/unit converter and the data-source allow-list.
// It is read-only after loading.
type SchemaRegistry struct {
	fields   map[fieldKey]FieldLookup
	allowed  map[string]struct{}
	order    []string
	warnings []*models.ParseError
}

// LoadSchemaRegistry loads the name/unit registry and the allow-list from disk.
// A missing file is fatal and wraps ErrRegistryMissing.
func LoadSchemaRegistry(namesPath, sourcesPath string) (*SchemaRegistry, error) {
	names, err := os.Open(namesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: name/unit registry %s: %v", ErrRegistryMissing, namesPath, err)
	}
	defer names.Close()

	sources, err := os.Open(sourcesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: data-source allow-list %s: %v", ErrRegistryMissing, sourcesPath, err)
	}
	defer sources.Close()

	return NewSchemaRegistry(names, sources)
}

// NewSchemaRegistry reads both registries from readers.
func NewSchemaRegistry(names, sources io.Reader) (*SchemaRegistry, error) {
	r := &SchemaRegistry{
		fields:  make(map[fieldKey]FieldLookup, 512),
		allowed: make(map[string]struct{}, 64),
	}
	if err := r.readNames(names); err != nil {
		return nil, fmt.Errorf("reading name/unit registry: %w", err)
	}
	if err := r.readSources(sources); err != nil {
		return nil, fmt.Errorf("reading data-source allow-list: %w", err)
	}
	return r, nil
}

func (r *SchemaRegistry) readNames(rd io.Reader) error {
	scanner := bufio.NewScanner(rd)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue // header
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			r.warnings = append(r.warnings, warning(lineNum, line, "registry line needs 4 fields"))
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		key := fieldKey{messageType: parts[0], field: parts[1]}
		if _, dup := r.fields[key]; dup {
			r.warnings = append(r.warnings, warning(lineNum, line, "duplicate registry entry, first match kept"))
			continue
		}

		unit := strings.Join(parts[3:], ",")
		if unit == "" {
			unit = models.UnitNone
		}
		r.fields[key] = FieldLookup{
			DisplayName: parts[2],
			Unit:        unit,
			Found:       true,
		}
	}
	return scanner.Err()
}

func (r *SchemaRegistry) readSources(rd io.Reader) error {
	scanner := bufio.NewScanner(rd)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue
		}
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if _, ok := r.allowed[name]; ok {
			continue
		}
		r.allowed[name] = struct{}{}
		r.order = append(r.order, name)
	}
	return scanner.Err()
}

// Lookup returns the display name and unit for a raw field. When the
// registry has no entry the raw field name is returned with
// models.UnitUnavailable and Found set to false.
func (r *SchemaRegistry) Lookup(messageType, field string) FieldLookup {
	if fl, ok := r.fields[fieldKey{messageType: messageType, field: field}]; ok {
		return fl
	}
	return FieldLookup{
		DisplayName: field,
		Unit:        models.UnitUnavailable,
		Found:       false,
	}
}

// Allowed reports whether a message type is on the data-source allow-list.
func (r *SchemaRegistry) Allowed(messageType string) bool {
	_, ok := r.allowed[messageType]
	return ok
}

// Sources returns the allow-listed message types in file order.
func (r *SchemaRegistry) Sources() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of name/unit entries.
func (r *SchemaRegistry) Len() int {
	return len(r.fields)
}

// Warnings returns the findings collected while loading.
func (r *SchemaRegistry) Warnings() []*models.ParseError {
	return r.warnings
}
