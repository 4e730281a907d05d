package parser

import (
	"fmt"
	"io"
	"os"

	"github.com/uav-flightlog/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ParsePlotCatalog parses a YAML plot catalog: the named plot requests a
// report asks for.
func ParsePlotCatalog(filePath string) (*models.PlotCatalog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParsePlotCatalogFromReader(file)
}

// ParsePlotCatalogFromReader parses a plot catalog from an io.Reader.
// Roles are normalized to lower case; unknown roles and plots without a
// name are rejected.
func ParsePlotCatalogFromReader(r io.Reader) (*models.PlotCatalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var catalog models.PlotCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(catalog.Plots))
	for i := range catalog.Plots {
		plot := &catalog.Plots[i]
		if plot.Name == "" {
			return nil, fmt.Errorf("plot %d has no name", i)
		}
		if _, dup := seen[plot.Name]; dup {
			return nil, fmt.Errorf("duplicate plot name: %s", plot.Name)
		}
		seen[plot.Name] = struct{}{}

		for j := range plot.Series {
			role, ok := models.ParseAxisRole(string(plot.Series[j].Role))
			if !ok {
				return nil, fmt.Errorf("plot %s series %d: unknown role %q", plot.Name, j, plot.Series[j].Role)
			}
			plot.Series[j].Role = role
		}
	}

	return &catalog, nil
}
