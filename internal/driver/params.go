package driver

import (
	"strconv"
	"time"

	"walk-ca/internal/core"
	"walk-ca/internal/walk"
)

const (
	paramSize     = "size"
	paramInterval = "interval_ms"
)

// Parameters reports the grid and run statistics for the HUD.
func (d *Driver) Parameters() core.ParameterSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.engine.State()
	last := d.rec.Last()
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Grid",
			Params: []core.Parameter{
				intParam(paramSize, "Grid size", st.Size),
				intParam("cells", "Cells", st.Total),
				int64Param("seed", "Seed", d.cfg.Seed),
			},
		},
		{
			Name: "Run",
			Params: []core.Parameter{
				stringParam("mode", "Mode", d.mode.String()),
				intParam(paramInterval, "Interval (ms)", int(d.cfg.Interval/time.Millisecond)),
				intParam("steps", "Steps", st.Steps),
				intParam("visited", "Visited", st.Visited),
				floatParam("coverage", "Visited (%)", last.Percentage),
			},
		},
	}}
}

// ParameterControls lists the values the HUD may adjust.
func (d *Driver) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: paramSize, Label: "Grid size", Step: 1, Min: walk.MinSize, Max: walk.MaxSize, HasMin: true, HasMax: true},
		{Key: paramInterval, Label: "Interval (ms)", Step: 10, Min: 10, Max: 1000, HasMin: true, HasMax: true},
	}
}

// SetIntParameter applies a HUD adjustment. Resizing is refused while running.
func (d *Driver) SetIntParameter(key string, value int) bool {
	switch key {
	case paramSize:
		if d.Mode() == Running {
			return false
		}
		d.Reset(walk.NormalizeSize(value))
		return true
	case paramInterval:
		if value <= 0 {
			return false
		}
		d.SetInterval(time.Duration(value) * time.Millisecond)
		return true
	default:
		return false
	}
}

func intParam(key, label string, value int) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeInt, Value: strconv.Itoa(value)}
}

func int64Param(key, label string, value int64) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeInt, Value: strconv.FormatInt(value, 10)}
}

func floatParam(key, label string, value float64) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeFloat, Value: strconv.FormatFloat(value, 'f', -1, 64)}
}

func stringParam(key, label, value string) core.Parameter {
	return core.Parameter{Key: key, Label: label, Type: core.ParamTypeString, Value: value}
}
