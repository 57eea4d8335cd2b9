package render

import "walk-ca/internal/series"

// Rect is a plot area in screen coordinates, Y growing downwards.
type Rect struct {
	X, Y, W, H float32
}

// Vertex is a screen-space point.
type Vertex struct {
	X, Y float32
}

// PercentTicks are the horizontal guide lines drawn on the chart.
var PercentTicks = []float64{0, 25, 50, 75, 100}

// StepRange returns the x-axis bounds for points. The axis starts at the
// oldest retained step, which is 0 until the series starts evicting, and
// spans at least one step.
func StepRange(points []series.Point) (lo, hi float64) {
	if len(points) > 0 {
		hi = float64(points[len(points)-1].Step)
		if first := float64(points[0].Step); first > 0 {
			lo = first
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// Polyline maps points into area: steps span the width, 0..100 percent spans
// the height from bottom to top.
func Polyline(points []series.Point, area Rect) []Vertex {
	if len(points) == 0 || area.W <= 0 || area.H <= 0 {
		return nil
	}
	lo, hi := StepRange(points)
	out := make([]Vertex, len(points))
	for i, p := range points {
		out[i] = Vertex{
			X: area.X + float32((float64(p.Step)-lo)/(hi-lo))*area.W,
			Y: PercentY(p.Percentage, area),
		}
	}
	return out
}

// PercentY returns the screen y of a percentage inside area, clamped to [0,100].
func PercentY(pct float64, area Rect) float32 {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return area.Y + area.H - float32(pct/100)*area.H
}
