package plot

import "github.com/uav-flightlog/backend/internal/models"

// CatalogResult is the outcome of one catalog plot. Dual is set for
// dual-axis plots, in which case Bundle holds its primary axis.
type CatalogResult struct {
	Name   string                 `json:"name" msgpack:"name"`
	Title  string                 `json:"title,omitempty" msgpack:"title,omitempty"`
	Code   models.Classification  `json:"code" msgpack:"code"`
	Bundle models.SeriesBundle    `json:"bundle" msgpack:"bundle"`
	Dual   *models.DualAxisBundle `json:"dual,omitempty" msgpack:"dual,omitempty"`
}

// Drawable reports whether the report layer should keep this plot.
func (r *CatalogResult) Drawable() bool {
	return r.Code != models.ClassInvalid && r.Bundle.Plottable()
}

// ResolveCatalog resolves every plot of a catalog against one ValuesList,
// in catalog order.
func ResolveCatalog(values models.ValuesList, catalog *models.PlotCatalog) []CatalogResult {
	if catalog == nil {
		return nil
	}
	results := make([]CatalogResult, 0, len(catalog.Plots))
	for _, def := range catalog.Plots {
		result := CatalogResult{Name: def.Name, Title: def.Title}
		if def.DualAxis {
			dual := BundleDualAxis(values, def.Series)
			result.Dual = &dual
			result.Bundle = dual.Primary
			result.Code = dual.Code()
		} else {
			result.Bundle = Bundle(values, def.Series)
			result.Code = result.Bundle.Code
		}
		results = append(results, result)
	}
	return results
}
