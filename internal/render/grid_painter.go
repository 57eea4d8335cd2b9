//go:build ebiten

package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// GridPainter uploads cell states into a single w*h image and draws it scaled.
type GridPainter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// NewGridPainter allocates a painter for a grid of size w*h.
func NewGridPainter(w, h int) *GridPainter {
	gp := &GridPainter{w: w, h: h, buf: make([]byte, 4*w*h)}
	gp.img = ebiten.NewImage(w, h)
	return gp
}

// Fits reports whether the painter matches the given dimensions.
func (gp *GridPainter) Fits(w, h int) bool { return gp != nil && gp.w == w && gp.h == h }

// Blit draws cells into dst so the whole grid covers a side*side square at
// (x, y). Mismatched buffers are skipped.
func (gp *GridPainter) Blit(dst *ebiten.Image, cells []uint8, palette []color.RGBA, x, y, side float64) bool {
	if len(cells) != gp.w*gp.h {
		return false
	}
	fillPaletteRGBA(gp.buf, cells, palette)
	gp.img.WritePixels(gp.buf)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(side/float64(gp.w), side/float64(gp.h))
	op.GeoM.Translate(x, y)
	dst.DrawImage(gp.img, op)
	return true
}

// Dispose releases the GPU image.
func (gp *GridPainter) Dispose() {
	if gp != nil && gp.img != nil {
		gp.img.Dispose()
	}
}
