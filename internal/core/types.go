package core

// Size describes the dimensions of a simulation grid.
type Size struct {
	W int
	H int
}

// Cells returns the number of cells covered by the size.
func (s Size) Cells() int { return s.W * s.H }

// Sim is the read-only view renderers need from a grid simulation. Cells
// returns one palette index per cell in row-major order.
type Sim interface {
	Name() string
	Size() Size
	Cells() []uint8
}
