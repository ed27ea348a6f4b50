package stats

import (
	"time"

	"github.com/guptarohit/asciigraph"
)

// ChartPoint is one chart-ready value derived from a PeriodSummary.
type ChartPoint struct {
	Label string    `json:"label"`
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

// ChartPoints projects summaries into points valued in hours of total duration.
func ChartPoints(summaries []PeriodSummary) []ChartPoint {
	points := make([]ChartPoint, len(summaries))
	for i, s := range summaries {
		points[i] = ChartPoint{
			Label: s.Label,
			Value: s.TotalDuration.Hours(),
			Date:  s.Start,
		}
	}
	return points
}

// QuantityPoints projects summaries into points valued in total quantity
// (milliliters for water and bottle feeds).
func QuantityPoints(summaries []PeriodSummary) []ChartPoint {
	points := make([]ChartPoint, len(summaries))
	for i, s := range summaries {
		points[i] = ChartPoint{Label: s.Label, Value: s.TotalQuantity, Date: s.Start}
	}
	return points
}

// CountPoints projects summaries into points valued in event counts.
func CountPoints(summaries []PeriodSummary) []ChartPoint {
	points := make([]ChartPoint, len(summaries))
	for i, s := range summaries {
		points[i] = ChartPoint{Label: s.Label, Value: float64(s.Count), Date: s.Start}
	}
	return points
}

// RenderChart draws points as an ASCII line chart. Returns an empty string
// when there is nothing to plot.
func RenderChart(points []ChartPoint, width, height int, caption string) string {
	if len(points) == 0 {
		return ""
	}
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	data := make([]float64, len(points))
	for i, p := range points {
		data[i] = p.Value
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
