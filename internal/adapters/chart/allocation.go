// Package chart renders portfolio charts as PNG images.
package chart

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"stockCalculator/internal/analytics"
	"stockCalculator/internal/ports"
)

// Size of the rendered image in pixels.
type Size struct {
	Width  int
	Height int
}

// RenderAllocation writes a donut chart of each position's share of the
// portfolio's market value to w as PNG. Positions without value are left out.
func RenderAllocation(w io.Writer, s *analytics.Summary, size Size) error {
	values := make([]chart.Value, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.Value <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", r.StockName, r.Allocation),
			Value: r.Value,
		})
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: no position has a market value to chart", ports.ErrNotFound)
	}

	graph := chart.DonutChart{
		Title:  "Allocation",
		Width:  size.Width,
		Height: size.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Values: values,
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("chart render failed: %w", err)
	}
	return nil
}
