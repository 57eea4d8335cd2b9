package core

// ByteGrid stores a 2D grid of byte-sized cell values in row-major order.
type ByteGrid struct {
	W, H int
	data []uint8
}

// NewByteGrid allocates a grid with the given dimensions.
func NewByteGrid(w, h int) *ByteGrid {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &ByteGrid{W: w, H: h, data: make([]uint8, w*h)}
}

// Len reports the number of cells.
func (g *ByteGrid) Len() int { return len(g.data) }

// Index returns the linear slice index for coordinates (x, y).
func (g *ByteGrid) Index(x, y int) int { return y*g.W + x }

// At returns the value stored at (x, y) after wrapping.
func (g *ByteGrid) At(x, y int) uint8 {
	x, y = g.Wrap(x, y)
	return g.data[g.Index(x, y)]
}

// Swap stores v at (x, y) after wrapping and returns the previous value.
func (g *ByteGrid) Swap(x, y int, v uint8) uint8 {
	x, y = g.Wrap(x, y)
	idx := g.Index(x, y)
	old := g.data[idx]
	g.data[idx] = v
	return old
}

// Wrap applies toroidal wrapping to the provided coordinates.
func (g *ByteGrid) Wrap(x, y int) (int, int) {
	x = (x%g.W + g.W) % g.W
	y = (y%g.H + g.H) % g.H
	return x, y
}

// Clear fills the grid with zeros.
func (g *ByteGrid) Clear() {
	clear(g.data)
}
