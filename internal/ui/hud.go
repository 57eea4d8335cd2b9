//go:build ebiten

package ui

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"walk-ca/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// HUD renders the statistics and control panel to the right of the grid.
type HUD struct {
	sim        core.Sim
	width      int
	panel      *ebiten.Image
	lastHeight int
	snapshot   core.ParameterSnapshot

	controls     []hudControlState
	intSetter    core.IntParameterSetter
	panelOffsetX int
	title        string

	pixel *ebiten.Image
}

// NewHUD constructs a HUD for the provided simulation and panel width.
func NewHUD(sim core.Sim, width int) *HUD {
	if width < 0 {
		width = 0
	}
	h := &HUD{sim: sim, width: width, title: "Random Walk"}
	if width > 0 {
		h.pixel = ebiten.NewImage(1, 1)
		h.pixel.Fill(color.White)
	}
	if provider, ok := sim.(core.ParameterControlsProvider); ok {
		controls := provider.ParameterControls()
		h.controls = make([]hudControlState, len(controls))
		for i, ctrl := range controls {
			h.controls[i] = hudControlState{control: ctrl, value: "--"}
		}
		h.layoutControls()
	}
	if setter, ok := sim.(core.IntParameterSetter); ok {
		h.intSetter = setter
	}
	return h
}

// Update refreshes the cached snapshot and handles clicks on the +/- buttons.
func (h *HUD) Update(panelOffsetX int) {
	if h == nil {
		return
	}
	h.panelOffsetX = panelOffsetX
	provider, ok := h.sim.(core.ParameterProvider)
	if !ok {
		h.snapshot = core.ParameterSnapshot{}
		return
	}
	h.snapshot = provider.Parameters()
	h.refreshControlValues()
	h.handleInput()
}

// Draw paints the panel at offsetX with the given height.
func (h *HUD) Draw(screen *ebiten.Image, offsetX int, height int) {
	if h == nil || h.width <= 0 || height <= 0 {
		return
	}
	if h.panel == nil || h.lastHeight != height {
		if h.panel != nil {
			h.panel.Dispose()
		}
		h.panel = ebiten.NewImage(h.width, height)
		h.lastHeight = height
	}
	h.panel.Fill(color.RGBA{R: 16, G: 16, B: 20, A: 255})
	h.drawControls()
	h.drawStats()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

func (h *HUD) refreshControlValues() {
	for i := range h.controls {
		state := &h.controls[i]
		param, ok := h.snapshot.Lookup(state.control.Key)
		if !ok {
			state.hasValue = false
			state.value = "--"
			continue
		}
		parsed, err := strconv.Atoi(param.Value)
		if err != nil {
			state.hasValue = false
			state.value = "--"
			continue
		}
		state.intValue = parsed
		state.value = param.Value
		state.hasValue = true
	}
}

func (h *HUD) handleInput() {
	if len(h.controls) == 0 || h.intSetter == nil {
		return
	}
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if mx < h.panelOffsetX {
		return
	}
	pt := image.Pt(mx-h.panelOffsetX, my)
	for i := range h.controls {
		state := &h.controls[i]
		if !state.hasValue {
			continue
		}
		if pt.In(state.minusRect) {
			h.applyAdjustment(state, -1)
			return
		}
		if pt.In(state.plusRect) {
			h.applyAdjustment(state, 1)
			return
		}
	}
}

func (h *HUD) applyAdjustment(state *hudControlState, direction int) {
	target, ok := h.adjusted(state, direction)
	if !ok {
		return
	}
	if h.intSetter.SetIntParameter(state.control.Key, target) {
		state.intValue = target
		state.value = strconv.Itoa(target)
	}
}

// adjusted returns the value one step in direction, or false when the bound
// is already reached.
func (h *HUD) adjusted(state *hudControlState, direction int) (int, bool) {
	if state == nil || direction == 0 || h.intSetter == nil {
		return 0, false
	}
	step := state.control.Step
	if step <= 0 {
		step = 1
	}
	target := state.control.Clamp(state.intValue + direction*step)
	return target, target != state.intValue
}

func (h *HUD) drawControls() {
	face := basicfont.Face7x13
	headerY := panelPadding + headerBaseline
	text.Draw(h.panel, h.title, face, panelPadding, headerY, color.RGBA{R: 200, G: 200, B: 210, A: 255})
	for i := range h.controls {
		state := &h.controls[i]
		labelY := state.top + labelBaseline
		text.Draw(h.panel, state.control.Label, face, panelPadding, labelY, labelColor)
		valueColor := labelColor
		if !state.hasValue {
			valueColor = dimColor
		}
		valueWidth := text.BoundString(face, state.value).Dx()
		valueX := state.minusRect.Min.X - buttonGap - valueWidth
		text.Draw(h.panel, state.value, face, valueX, labelY, valueColor)

		_, minusEnabled := h.adjusted(state, -1)
		_, plusEnabled := h.adjusted(state, 1)
		h.drawButton(state.minusRect, "-", state.hasValue && minusEnabled)
		h.drawButton(state.plusRect, "+", state.hasValue && plusEnabled)
	}
}

func (h *HUD) drawStats() {
	face := basicfont.Face7x13
	y := controlsTop + len(h.controls)*lineHeight + infoSpacing/2
	for _, group := range h.snapshot.Groups {
		text.Draw(h.panel, group.Name, face, panelPadding, y, color.RGBA{R: 200, G: 200, B: 210, A: 255})
		y += statLine
		for _, p := range group.Params {
			if h.isControl(p.Key) {
				continue
			}
			text.Draw(h.panel, p.Label, face, panelPadding+8, y, dimColor)
			value := formatValue(p)
			valueWidth := text.BoundString(face, value).Dx()
			text.Draw(h.panel, value, face, h.width-panelPadding-valueWidth, y, labelColor)
			y += statLine
		}
		y += statLine / 2
	}
	hints := []string{"space  play / pause", "n      single step", "r      reset", "g / t  overlays"}
	y = h.lastHeight - panelPadding - (len(hints)-1)*statLine
	for _, hint := range hints {
		text.Draw(h.panel, hint, face, panelPadding, y, dimColor)
		y += statLine
	}
}

func (h *HUD) isControl(key string) bool {
	for i := range h.controls {
		if h.controls[i].control.Key == key {
			return true
		}
	}
	return false
}

func (h *HUD) drawButton(rect image.Rectangle, label string, enabled bool) {
	if h.pixel == nil {
		return
	}
	bg := color.RGBA{R: 54, G: 56, B: 64, A: 255}
	fg := color.RGBA{R: 230, G: 230, B: 240, A: 255}
	if !enabled {
		bg = color.RGBA{R: 32, G: 34, B: 40, A: 255}
		fg = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(rect.Dx()), float64(rect.Dy()))
	op.GeoM.Translate(float64(rect.Min.X), float64(rect.Min.Y))
	op.ColorScale.ScaleWithColor(bg)
	h.panel.DrawImage(h.pixel, op)

	face := basicfont.Face7x13
	bounds := text.BoundString(face, label)
	x := rect.Min.X + (rect.Dx()-bounds.Dx())/2
	y := rect.Min.Y + (rect.Dy()-bounds.Dy())/2 + bounds.Dy()
	text.Draw(h.panel, label, face, x, y, fg)
}

func (h *HUD) layoutControls() {
	if h.width <= 0 {
		return
	}
	for i := range h.controls {
		top := controlsTop + i*lineHeight
		buttonY := top + (lineHeight-buttonSize)/2
		plusRect := image.Rect(h.width-panelPadding-buttonSize, buttonY, h.width-panelPadding, buttonY+buttonSize)
		minusRect := image.Rect(plusRect.Min.X-buttonGap-buttonSize, buttonY, plusRect.Min.X-buttonGap, buttonY+buttonSize)
		h.controls[i].top = top
		h.controls[i].minusRect = minusRect
		h.controls[i].plusRect = plusRect
	}
}

func formatValue(p core.Parameter) string {
	if p.Type != core.ParamTypeFloat {
		return p.Value
	}
	v, err := strconv.ParseFloat(p.Value, 64)
	if err != nil {
		return p.Value
	}
	return fmt.Sprintf("%.2f", v)
}

type hudControlState struct {
	control  core.ParameterControl
	value    string
	intValue int
	hasValue bool

	top       int
	minusRect image.Rectangle
	plusRect  image.Rectangle
}

var (
	labelColor = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dimColor   = color.RGBA{R: 160, G: 160, B: 170, A: 255}
)

const (
	panelPadding   = 12
	lineHeight     = 36
	buttonSize     = 24
	buttonGap      = 6
	headerBaseline = 18
	labelBaseline  = 24
	infoSpacing    = 36
	statLine       = 16
	controlsTop    = panelPadding + headerBaseline + 14
)
