package render

import (
	"image"
	"image/color"
)

// fillPaletteRGBA converts cell values into RGBA pixels using a palette.
// Values outside the palette render as transparent black.
func fillPaletteRGBA(buf []byte, cells []uint8, palette []color.RGBA) {
	for i, c := range cells {
		base := i * 4
		if int(c) >= len(palette) {
			buf[base+0] = 0
			buf[base+1] = 0
			buf[base+2] = 0
			buf[base+3] = 0
			continue
		}
		col := palette[c]
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}

// GridImage renders cells as a w*h image with each cell drawn as a
// scale*scale block. It returns nil when cells does not match the dimensions.
func GridImage(cells []uint8, w, h int, palette []color.RGBA, scale int) *image.RGBA {
	if w <= 0 || h <= 0 || len(cells) != w*h {
		return nil
	}
	if scale <= 0 {
		scale = 1
	}
	px := make([]byte, 4*w*h)
	fillPaletteRGBA(px, cells, palette)

	img := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		src := (y / scale) * w * 4
		row := img.Pix[y*img.Stride : y*img.Stride+w*scale*4]
		for x := 0; x < w*scale; x++ {
			copy(row[x*4:x*4+4], px[src+(x/scale)*4:])
		}
	}
	return img
}
