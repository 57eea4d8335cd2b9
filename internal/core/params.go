package core

// ParamType enumerates supported parameter value kinds.
type ParamType string

const (
	// ParamTypeInt denotes integer-valued parameters.
	ParamTypeInt ParamType = "int"
	// ParamTypeFloat denotes floating-point parameters.
	ParamTypeFloat ParamType = "float"
	// ParamTypeString denotes free-form read-only values such as modes.
	ParamTypeString ParamType = "string"
)

// Parameter describes a single value exposed by a simulation.
type Parameter struct {
	Key   string
	Label string
	Type  ParamType
	Value string
}

// ParameterGroup clusters related parameters for presentation purposes.
type ParameterGroup struct {
	Name   string
	Params []Parameter
}

// ParameterSnapshot captures the current set of values exposed by a sim.
type ParameterSnapshot struct {
	Groups []ParameterGroup
}

// Lookup finds a parameter by key across all groups.
func (s ParameterSnapshot) Lookup(key string) (Parameter, bool) {
	for _, g := range s.Groups {
		for _, p := range g.Params {
			if p.Key == key {
				return p, true
			}
		}
	}
	return Parameter{}, false
}

// ParameterControl describes an adjustable integer parameter that should be
// exposed on the HUD. Bounds are optional.
type ParameterControl struct {
	Key   string
	Label string

	Step int

	Min    int
	Max    int
	HasMin bool
	HasMax bool
}

// Clamp applies the control's bounds to v.
func (c ParameterControl) Clamp(v int) int {
	if c.HasMin && v < c.Min {
		v = c.Min
	}
	if c.HasMax && v > c.Max {
		v = c.Max
	}
	return v
}

// ParameterProvider exposes a snapshot of current values.
type ParameterProvider interface {
	Parameters() ParameterSnapshot
}

// ParameterControlsProvider exposes the list of HUD-adjustable controls.
type ParameterControlsProvider interface {
	ParameterControls() []ParameterControl
}

// IntParameterSetter allows HUD interactions to update integer parameters.
type IntParameterSetter interface {
	SetIntParameter(key string, value int) bool
}
