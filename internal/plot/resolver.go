// Package plot binds symbolic series requests to a ValuesList and decides
// how the resolved series can be drawn together.
package plot

import (
	"strings"

	"github.com/uav-flightlog/backend/internal/models"
)

// Resolve binds each reference to a column. Entries are matched on message
// type and columns on display name, both case-insensitively; the first
// match wins. References that match nothing are dropped: a log without a
// given instrument is a normal outcome, not an error.
func Resolve(values models.ValuesList, refs []models.SeriesReference) []models.ResolvedSeries {
	resolved := make([]models.ResolvedSeries, 0, len(refs))
	for _, ref := range refs {
		if rs, ok := resolveOne(values, ref); ok {
			resolved = append(resolved, rs)
		}
	}
	return resolved
}

func resolveOne(values models.ValuesList, ref models.SeriesReference) (models.ResolvedSeries, bool) {
	// A message type split by time alignment or merged from an auxiliary
	// source spans several entries.
	for i := range values.Entries {
		if rs, ok := resolveIn(values, i, ref); ok {
			return rs, true
		}
	}
	return models.ResolvedSeries{}, false
}

func resolveIn(values models.ValuesList, i int, ref models.SeriesReference) (models.ResolvedSeries, bool) {
	entry := &values.Entries[i]
	if !strings.EqualFold(entry.MessageType, ref.MessageType) {
		return models.ResolvedSeries{}, false
	}
	col, ok := entry.Column(ref.Field)
	if !ok {
		return models.ResolvedSeries{}, false
	}
	return models.ResolvedSeries{
		Reference:  ref,
		Column:     col,
		EntryIndex: i,
	}, true
}

// entryAxes binds the x references again inside the entries of y series
// that have no x series yet, so a y series from a later entry of a type
// (a merged auxiliary table) pairs with that entry's own x column.
func entryAxes(values models.ValuesList, resolved []models.ResolvedSeries) []models.ResolvedSeries {
	bound := make(map[int]bool, len(resolved))
	var xs []models.SeriesReference
	for _, rs := range resolved {
		if isX(rs) {
			bound[rs.EntryIndex] = true
			xs = append(xs, rs.Reference)
		}
	}

	var extra []models.ResolvedSeries
	for _, rs := range resolved {
		if isX(rs) || bound[rs.EntryIndex] {
			continue
		}
		for _, x := range xs {
			if found, ok := resolveIn(values, rs.EntryIndex, x); ok {
				extra = append(extra, found)
				bound[rs.EntryIndex] = true
				break
			}
		}
	}
	return extra
}

// isX reports whether a series is drawn on the x axis. Everything else is a
// y series, on whichever y axis.
func isX(rs models.ResolvedSeries) bool {
	return rs.Reference.Role == models.RoleX
}

// Pair matches every resolved y series with the first x series taken from
// the same ValuesList entry. Pairs follow the order of the y series; the
// order in which x and y were requested relative to each other does not
// matter.
func Pair(resolved []models.ResolvedSeries) []models.SeriesPair {
	xByEntry := make(map[int]models.ResolvedSeries, len(resolved))
	for _, rs := range resolved {
		if !isX(rs) {
			continue
		}
		if _, ok := xByEntry[rs.EntryIndex]; !ok {
			xByEntry[rs.EntryIndex] = rs
		}
	}

	pairs := make([]models.SeriesPair, 0, len(resolved))
	for _, rs := range resolved {
		if isX(rs) {
			continue
		}
		x, ok := xByEntry[rs.EntryIndex]
		if !ok {
			continue
		}
		pairs = append(pairs, models.SeriesPair{X: x, Y: rs})
	}
	return pairs
}

// Bundle resolves, pairs and classifies a plot request. An x reference
// pairs with y series from every entry of its message type that holds the
// x field, not only the first one.
func Bundle(values models.ValuesList, refs []models.SeriesReference) models.SeriesBundle {
	resolved := Resolve(values, refs)
	candidates := append(resolved[:len(resolved):len(resolved)], entryAxes(values, resolved)...)
	return models.SeriesBundle{
		Code:     Classify(resolved),
		Resolved: true,
		Series:   resolved,
		Pairs:    Pair(candidates),
	}
}
