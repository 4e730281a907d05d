package models

import "strings"

// AxisRole is the axis a requested series is drawn against.
type AxisRole string

const (
	RoleX AxisRole = "x"
	RoleY AxisRole = "y"
	// RoleY2 places a series on the secondary y axis of a dual-axis plot.
	RoleY2 AxisRole = "y2"
)

// NormalizeRoles rewrites every role to its canonical spelling, leaving
// unknown roles untouched for validation to reject.
func NormalizeRoles(refs []SeriesReference) {
	for i := range refs {
		if role, ok := ParseAxisRole(string(refs[i].Role)); ok {
			refs[i].Role = role
		}
	}
}

// ParseAxisRole converts a role name, returning false for unknown roles.
func ParseAxisRole(s string) (AxisRole, bool) {
	switch AxisRole(strings.ToLower(strings.TrimSpace(s))) {
	case RoleX:
		return RoleX, true
	case RoleY:
		return RoleY, true
	case RoleY2:
		return RoleY2, true
	}
	return "", false
}

// SeriesReference is a symbolic series request not yet bound to data.
type SeriesReference struct {
	Role        AxisRole `json:"role" yaml:"role" msgpack:"role" validate:"required,oneof=x y y2"`
	Field       string   `json:"field" yaml:"field" msgpack:"field" validate:"required"`
	MessageType string   `json:"messageType" yaml:"message_type" msgpack:"messageType" validate:"required"`
}

// ResolvedSeries is a reference bound to a column of a ValuesList.
type ResolvedSeries struct {
	Reference  SeriesReference `json:"reference" msgpack:"reference"`
	Column     *Column         `json:"column" msgpack:"column"`
	EntryIndex int             `json:"entryIndex" msgpack:"entryIndex"`
}

// SeriesPair is an x and a y series taken from the same ValuesList entry.
type SeriesPair struct {
	X ResolvedSeries `json:"x" msgpack:"x"`
	Y ResolvedSeries `json:"y" msgpack:"y"`
}

// Classification describes whether and how a set of series can be drawn together.
type Classification int

const (
	// ClassInvalid means nothing can be drawn.
	ClassInvalid Classification = 0
	// ClassSinglePair is exactly one x and one y series.
	ClassSinglePair Classification = 1
	// ClassSharedUnit is several series whose y values share one unit.
	ClassSharedUnit Classification = 2
	// ClassMixedUnit is several series with heterogeneous y units; each
	// series needs its own unit label.
	ClassMixedUnit Classification = 3
)

// String returns the name of the classification.
func (c Classification) String() string {
	switch c {
	case ClassInvalid:
		return "invalid"
	case ClassSinglePair:
		return "single_pair"
	case ClassSharedUnit:
		return "shared_unit"
	case ClassMixedUnit:
		return "mixed_unit"
	default:
		return "unknown"
	}
}

// SeriesBundle is the outcome of a plot request.
type SeriesBundle struct {
	Code Classification `json:"code" msgpack:"code"`
	// Resolved is false for a bundle that was never run through resolution,
	// which keeps it apart from a resolved request classified as invalid.
	Resolved bool             `json:"resolved" msgpack:"resolved"`
	Series   []ResolvedSeries `json:"series" msgpack:"series"`
	Pairs    []SeriesPair     `json:"pairs" msgpack:"pairs"`
}

// Plottable reports whether the bundle has anything to draw.
func (b *SeriesBundle) Plottable() bool {
	return b.Resolved && b.Code != ClassInvalid && len(b.Pairs) > 0
}

// Role returns the resolved series of the given role in request order.
func (b *SeriesBundle) Role(role AxisRole) []ResolvedSeries {
	out := make([]ResolvedSeries, 0, len(b.Series))
	for _, s := range b.Series {
		if s.Reference.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// DualAxisBundle holds a plot with a primary and a secondary y axis.
type DualAxisBundle struct {
	Primary   SeriesBundle `json:"primary" msgpack:"primary"`
	Secondary SeriesBundle `json:"secondary" msgpack:"secondary"`
}

// Code returns the overall classification: invalid when the primary axis
// cannot be drawn, otherwise the primary axis code.
func (d *DualAxisBundle) Code() Classification {
	return d.Primary.Code
}

// HasSecondary reports whether the secondary axis has anything to draw.
func (d *DualAxisBundle) HasSecondary() bool {
	return d.Primary.Code != ClassInvalid && d.Secondary.Plottable()
}

// PlotDefinition is a named plot request from a plot catalog.
type PlotDefinition struct {
	Name     string            `json:"name" yaml:"name" validate:"required"`
	Title    string            `json:"title,omitempty" yaml:"title,omitempty"`
	DualAxis bool              `json:"dualAxis,omitempty" yaml:"dual_axis,omitempty"`
	Series   []SeriesReference `json:"series" yaml:"series" validate:"required,min=1,dive"`
}

// PlotCatalog is the set of plots a report asks for.
type PlotCatalog struct {
	Plots []PlotDefinition `json:"plots" yaml:"plots" validate:"required,min=1,dive"`
}
