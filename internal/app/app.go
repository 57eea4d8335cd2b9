//go:build ebiten

package app

import (
	"context"
	"image/color"
	"log/slog"

	"walk-ca/internal/driver"
	"walk-ca/internal/render"
	"walk-ca/internal/ui"
	"walk-ca/internal/walk"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game adapts the walk driver to the ebiten.Game interface.
type Game struct {
	drv     *driver.Driver
	palette []color.RGBA
	painter *render.GridPainter
	chart   *render.ChartPainter
	overlay *ui.Overlay
	hud     *ui.HUD
	log     *slog.Logger

	gridSide    int
	chartHeight int
	hudWidth    int
}

// New constructs a Game for the provided driver.
func New(drv *driver.Driver, cfg *Config, log *slog.Logger) *Game {
	side := cfg.GridSide()
	g := &Game{
		drv:         drv,
		palette:     walk.Palette(),
		overlay:     ui.NewOverlay(drv),
		hud:         ui.NewHUD(drv, cfg.HUDWidth),
		log:         log,
		gridSide:    side,
		chartHeight: cfg.ChartHeight(),
		hudWidth:    cfg.HUDWidth,
	}
	g.chart = render.NewChartPainter(render.Rect{
		X: 0, Y: float32(side + 2), W: float32(side), H: float32(g.chartHeight),
	})
	return g
}

// WindowSize returns the outer window dimensions.
func (g *Game) WindowSize() (int, int) {
	return g.gridSide + g.hudWidth, g.gridSide + 2 + g.chartHeight
}

// Update handles per-frame input. Stepping itself runs on the driver's
// play loop or on explicit single steps.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.drv.Pause()
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if g.drv.Mode() == driver.Running {
			g.drv.Pause()
		} else if err := g.drv.Play(context.Background()); err != nil {
			g.log.Warn("play", "err", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		if _, err := g.drv.StepOnce(); err != nil {
			g.log.Debug("single step ignored", "err", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.drv.Reset(0)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.drv.SetIntParameter("size", g.drv.Size().W+1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		g.drv.SetIntParameter("size", g.drv.Size().W-1)
	}

	g.overlay.Update()
	g.hud.Update(g.gridSide)
	return nil
}

// Draw renders the grid, its overlay, the coverage chart and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 34, G: 34, B: 40, A: 255})

	size := g.drv.Size()
	if !g.painter.Fits(size.W, size.H) {
		g.painter.Dispose()
		g.painter = render.NewGridPainter(size.W, size.H)
	}
	side := float64(g.gridSide)
	if !g.painter.Blit(screen, g.drv.Cells(), g.palette, 0, 0, side) {
		// The grid was resized between Size and Cells; the next frame catches up.
		g.log.Debug("grid draw skipped", "size", size.W)
	}
	g.overlay.Draw(screen, 0, 0, float32(side))
	g.chart.Draw(screen, g.drv.Points())
	g.hud.Draw(screen, g.gridSide, g.gridSide+2+g.chartHeight)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.WindowSize()
}
