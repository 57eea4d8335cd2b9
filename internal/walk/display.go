package walk

import "image/color"

// CellState is the display value of a single cell.
type CellState uint8

const (
	CellUnvisited CellState = iota
	CellVisited
	CellWalker
)

func (s CellState) String() string {
	switch s {
	case CellUnvisited:
		return "unvisited"
	case CellVisited:
		return "visited"
	case CellWalker:
		return "walker"
	default:
		return "unknown"
	}
}

var walkPalette = []color.RGBA{
	CellUnvisited: {R: 238, G: 238, B: 238, A: 255},
	CellVisited:   {R: 135, G: 206, B: 250, A: 255},
	CellWalker:    {R: 255, G: 99, B: 71, A: 255},
}

// Palette returns the colors used for rendering cell states, indexed by CellState.
func Palette() []color.RGBA {
	return walkPalette
}

// Palette exposes the colors used for rendering the engine's cells.
func (e *Engine) Palette() []color.RGBA {
	return walkPalette
}
