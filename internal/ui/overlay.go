//go:build ebiten

package ui

import (
	"image/color"

	"walk-ca/internal/core"
	"walk-ca/internal/walk"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

type walkerProvider interface {
	State() walk.State
}

// gridLinesMaxSide hides grid lines once cells get too small to see them.
const gridLinesMaxSide = 60

// Overlay draws optional debugging visuals on top of the grid.
type Overlay struct {
	sim           core.Sim
	showGrid      bool
	showNeighbors bool
}

// NewOverlay constructs a new overlay instance.
func NewOverlay(sim core.Sim) *Overlay {
	return &Overlay{sim: sim, showGrid: true}
}

// Update toggles overlays from keyboard input.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyG) {
		o.showGrid = !o.showGrid
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		o.showNeighbors = !o.showNeighbors
	}
}

// Draw renders the overlay over a grid drawn as a side*side square at (x, y).
func (o *Overlay) Draw(screen *ebiten.Image, x, y, side float32) {
	size := o.sim.Size()
	if size.W <= 0 || size.H <= 0 || side <= 0 {
		return
	}
	cell := side / float32(size.W)

	if o.showGrid && size.W <= gridLinesMaxSide {
		line := color.RGBA{R: 200, G: 200, B: 200, A: 255}
		for i := 0; i <= size.W; i++ {
			off := float32(i) * cell
			vector.StrokeLine(screen, x+off, y, x+off, y+side, 1, line, false)
			vector.StrokeLine(screen, x, y+off, x+side, y+off, 1, line, false)
		}
	}

	if !o.showNeighbors {
		return
	}
	provider, ok := o.sim.(walkerProvider)
	if !ok {
		return
	}
	st := provider.State()
	target := color.RGBA{R: 255, G: 160, B: 0, A: 255}
	for _, m := range walk.Moves {
		nx := ((st.Walker.X+m.DX)%size.W + size.W) % size.W
		ny := ((st.Walker.Y+m.DY)%size.H + size.H) % size.H
		vector.StrokeRect(screen, x+float32(nx)*cell, y+float32(ny)*cell, cell, cell, 2, target, false)
	}
}
