//go:build ebiten

package render

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"walk-ca/internal/series"
)

var (
	chartBackground = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	chartGuide      = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	chartAxisText   = color.RGBA{R: 80, G: 80, B: 90, A: 255}
	chartLine       = color.RGBA{R: 255, G: 99, B: 132, A: 255}
	chartFill       = color.RGBA{R: 255, G: 99, B: 132, A: 51}
)

const (
	chartMarginLeft   = 40
	chartMarginRight  = 12
	chartMarginTop    = 10
	chartMarginBottom = 34
)

// ChartPainter draws the visited-percentage series as a line chart.
type ChartPainter struct {
	Bounds Rect
}

// NewChartPainter returns a painter that fills the given rectangle.
func NewChartPainter(bounds Rect) *ChartPainter {
	return &ChartPainter{Bounds: bounds}
}

// PlotArea is the region inside the axis margins.
func (c *ChartPainter) PlotArea() Rect {
	b := c.Bounds
	return Rect{
		X: b.X + chartMarginLeft,
		Y: b.Y + chartMarginTop,
		W: b.W - chartMarginLeft - chartMarginRight,
		H: b.H - chartMarginTop - chartMarginBottom,
	}
}

// Draw paints guides, axis labels and the series polyline.
func (c *ChartPainter) Draw(dst *ebiten.Image, points []series.Point) {
	b := c.Bounds
	vector.DrawFilledRect(dst, b.X, b.Y, b.W, b.H, chartBackground, false)
	area := c.PlotArea()
	if area.W <= 0 || area.H <= 0 {
		return
	}

	face := basicfont.Face7x13
	for _, tick := range PercentTicks {
		y := PercentY(tick, area)
		vector.StrokeLine(dst, area.X, y, area.X+area.W, y, 1, chartGuide, false)
		label := fmt.Sprintf("%3.0f", tick)
		text.Draw(dst, label, face, int(b.X)+6, int(y)+4, chartAxisText)
	}

	lo, hi := StepRange(points)
	bottom := int(area.Y + area.H)
	text.Draw(dst, fmt.Sprintf("%d", int(lo)), face, int(area.X), bottom+14, chartAxisText)
	hiLabel := fmt.Sprintf("%d", int(hi))
	hiWidth := text.BoundString(face, hiLabel).Dx()
	text.Draw(dst, hiLabel, face, int(area.X+area.W)-hiWidth, bottom+14, chartAxisText)
	axis := "Time Step"
	axisWidth := text.BoundString(face, axis).Dx()
	text.Draw(dst, axis, face, int(area.X+area.W/2)-axisWidth/2, bottom+28, chartAxisText)

	verts := Polyline(points, area)
	base := area.Y + area.H
	for i := 1; i < len(verts); i++ {
		a, z := verts[i-1], verts[i]
		if w := z.X - a.X; w >= 1 {
			vector.DrawFilledRect(dst, a.X, z.Y, w, base-z.Y, chartFill, false)
		}
		vector.StrokeLine(dst, a.X, a.Y, z.X, z.Y, 1.5, chartLine, true)
	}
}
