package plot

import "github.com/uav-flightlog/backend/internal/models"

// BundleDualAxis resolves a plot with two y axes. The x references are
// shared; y references go to the primary axis and y2 references to the
// secondary axis, and each axis is classified on its own. When the primary
// axis is invalid the whole plot is invalid and the secondary axis is left
// empty.
func BundleDualAxis(values models.ValuesList, refs []models.SeriesReference) models.DualAxisBundle {
	var primary, secondary []models.SeriesReference
	for _, ref := range refs {
		switch ref.Role {
		case models.RoleX:
			primary = append(primary, ref)
			secondary = append(secondary, ref)
		case models.RoleY2:
			secondary = append(secondary, ref)
		default:
			primary = append(primary, ref)
		}
	}

	bundle := models.DualAxisBundle{Primary: Bundle(values, primary)}
	if bundle.Primary.Code == models.ClassInvalid {
		bundle.Secondary = models.SeriesBundle{Resolved: true}
		return bundle
	}
	bundle.Secondary = Bundle(values, secondary)
	return bundle
}
