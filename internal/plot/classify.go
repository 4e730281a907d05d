package plot

import "github.com/uav-flightlog/backend/internal/models"

// Classify decides how a set of resolved series can be drawn:
//
//   - ClassInvalid when no x or no y series resolved, or when several x
//     series disagree on display name or unit
//   - ClassSinglePair for exactly one x and one y series
//   - ClassSharedUnit for more series whose y series share one unit
//   - ClassMixedUnit when the y series carry different units
//
// Names and units are compared with exact string equality.
func Classify(resolved []models.ResolvedSeries) models.Classification {
	var xs, ys []models.ResolvedSeries
	for _, rs := range resolved {
		if rs.Column == nil {
			continue
		}
		if isX(rs) {
			xs = append(xs, rs)
		} else {
			ys = append(ys, rs)
		}
	}

	if len(xs) == 0 || len(ys) == 0 {
		return models.ClassInvalid
	}
	if len(xs) == 1 && len(ys) == 1 {
		return models.ClassSinglePair
	}

	if !sameAxis(xs) {
		return models.ClassInvalid
	}
	if !sameUnit(ys) {
		return models.ClassMixedUnit
	}
	return models.ClassSharedUnit
}

// sameAxis reports whether all series share display name and unit.
func sameAxis(series []models.ResolvedSeries) bool {
	first := series[0].Column
	for _, rs := range series[1:] {
		if rs.Column.DisplayName != first.DisplayName || rs.Column.Unit != first.Unit {
			return false
		}
	}
	return true
}

func sameUnit(series []models.ResolvedSeries) bool {
	unit := series[0].Column.Unit
	for _, rs := range series[1:] {
		if rs.Column.Unit != unit {
			return false
		}
	}
	return true
}

// Units returns the distinct units of the y series in request order. A
// mixed-unit plot labels each series with one of these.
func Units(bundle models.SeriesBundle) []string {
	seen := make(map[string]struct{}, len(bundle.Series))
	var units []string
	for _, rs := range bundle.Series {
		if isX(rs) || rs.Column == nil {
			continue
		}
		if _, ok := seen[rs.Column.Unit]; ok {
			continue
		}
		seen[rs.Column.Unit] = struct{}{}
		units = append(units, rs.Column.Unit)
	}
	return units
}
