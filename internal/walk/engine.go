package walk

import (
	"walk-ca/internal/core"
)

// Position is a cell coordinate on the grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Move is an orthogonal displacement.
type Move struct {
	DX, DY int
}

// Moves lists the four orthogonal moves in the order move pickers index them.
var Moves = [4]Move{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// State is a snapshot of the engine handed to observers after configuration.
type State struct {
	Size    int      `json:"size"`
	Walker  Position `json:"walker"`
	Steps   int      `json:"steps"`
	Visited int      `json:"visited"`
	Total   int      `json:"total"`
}

// Snapshot is a State together with a copy of the display buffer, enough for
// an observer joining mid-run to draw the grid. Cells encodes as base64 in JSON.
type Snapshot struct {
	State
	Cells []uint8 `json:"cells"`
}

// StepResult describes a single walker transition.
type StepResult struct {
	From         Position `json:"from"`
	To           Position `json:"to"`
	NewlyVisited bool     `json:"newly_visited"`
	Steps        int      `json:"steps"`
	Visited      int      `json:"visited"`
	Total        int      `json:"total"`
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRNG injects the random source used for start positions and moves.
func WithRNG(r *core.RNG) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithSeed seeds a fresh deterministic random source.
func WithSeed(seed int64) Option {
	return func(e *Engine) {
		e.rng = core.NewRNG(seed)
		e.seed = seed
	}
}

// WithMoves overrides move selection. pick returns an index into Moves and is
// reduced modulo 4.
func WithMoves(pick func() int) Option {
	return func(e *Engine) { e.pick = pick }
}

// Engine runs a simple random walk on an N×N torus and tracks which cells the
// walker has visited.
type Engine struct {
	size    int
	grid    *core.ByteGrid
	display []uint8

	walker  Position
	steps   int
	visited int

	rng  *core.RNG
	seed int64
	pick func() int
}

// New returns an engine configured for the requested size.
func New(size int, opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	e.Configure(size)
	return e
}

// NewWithConfig returns an engine built from cfg. A zero seed seeds from the clock.
func NewWithConfig(cfg Config, opts ...Option) *Engine {
	if cfg.Seed != 0 {
		opts = append([]Option{WithSeed(cfg.Seed)}, opts...)
	}
	return New(cfg.Size, opts...)
}

// Name returns the simulation identifier.
func (e *Engine) Name() string { return "walk" }

// Configure rebuilds the grid for the requested size, places the walker
// uniformly at random and zeroes the counters. Invalid sizes are clamped or
// defaulted, never rejected.
func (e *Engine) Configure(requested int) State {
	e.ensureRNG()
	n := NormalizeSize(requested)
	if e.grid == nil || e.size != n {
		e.size = n
		e.grid = core.NewByteGrid(n, n)
		e.display = make([]uint8, e.grid.Len())
	} else {
		e.grid.Clear()
		clear(e.display)
	}
	e.walker = Position{X: e.rng.IntN(n), Y: e.rng.IntN(n)}
	e.steps = 0
	e.visited = 0
	e.display[e.grid.Index(e.walker.X, e.walker.Y)] = uint8(CellWalker)
	return e.State()
}

// Reset reconfigures the engine at its current size.
func (e *Engine) Reset() State {
	return e.Configure(e.size)
}

// Apply reconfigures the engine from cfg. A non-zero Seed rewinds the random
// source first, so Apply(Config{Size: n, Seed: s}) replays New(n, WithSeed(s)).
func (e *Engine) Apply(cfg Config) State {
	if cfg.Seed != 0 {
		if e.rng == nil {
			e.rng = core.NewRNG(cfg.Seed)
		} else {
			e.rng.Seed(cfg.Seed)
		}
		e.seed = cfg.Seed
	}
	return e.Configure(cfg.Size)
}

// Seed reports the seed of the current random source.
func (e *Engine) Seed() int64 { return e.seed }

// Step marks the walker's cell visited, then moves it to one of its four
// toroidal neighbours.
func (e *Engine) Step() StepResult {
	e.ensureConfigured()
	from := e.walker
	newly := e.grid.Swap(from.X, from.Y, 1) == 0
	if newly {
		e.visited++
	}

	m := Moves[e.nextMove()]
	x, y := e.grid.Wrap(from.X+m.DX, from.Y+m.DY)
	to := Position{X: x, Y: y}

	e.display[e.grid.Index(from.X, from.Y)] = uint8(CellVisited)
	e.display[e.grid.Index(to.X, to.Y)] = uint8(CellWalker)
	e.walker = to
	e.steps++

	return StepResult{
		From:         from,
		To:           to,
		NewlyVisited: newly,
		Steps:        e.steps,
		Visited:      e.visited,
		Total:        e.Total(),
	}
}

// State returns a snapshot of the engine.
func (e *Engine) State() State {
	return State{
		Size:    e.size,
		Walker:  e.walker,
		Steps:   e.steps,
		Visited: e.visited,
		Total:   e.Total(),
	}
}

// Snapshot returns the state with a copy of the display buffer.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{State: e.State(), Cells: append([]uint8(nil), e.display...)}
}

// Side returns the grid side length.
func (e *Engine) Side() int { return e.size }

// Size returns the grid dimensions.
func (e *Engine) Size() core.Size { return core.Size{W: e.size, H: e.size} }

// Total returns the number of cells on the grid.
func (e *Engine) Total() int { return e.Size().Cells() }

// Walker returns the current walker position.
func (e *Engine) Walker() Position { return e.walker }

// Steps returns the number of completed steps.
func (e *Engine) Steps() int { return e.steps }

// Visited returns the number of distinct cells visited.
func (e *Engine) Visited() int { return e.visited }

// Percentage returns the visited share of the grid in percent.
func (e *Engine) Percentage() float64 {
	if e.size == 0 {
		return 0
	}
	return 100 * float64(e.visited) / float64(e.Total())
}

// IsVisited reports whether (x, y) has been marked. Coordinates wrap.
func (e *Engine) IsVisited(x, y int) bool {
	if e.grid == nil {
		return false
	}
	return e.grid.At(x, y) != 0
}

// Neighbors returns the four toroidal neighbours of p in Moves order.
func (e *Engine) Neighbors(p Position) [4]Position {
	e.ensureConfigured()
	var out [4]Position
	for i, m := range Moves {
		x, y := e.grid.Wrap(p.X+m.DX, p.Y+m.DY)
		out[i] = Position{X: x, Y: y}
	}
	return out
}

// Cells exposes the display buffer, one CellState per cell in row-major order.
func (e *Engine) Cells() []uint8 { return e.display }

func (e *Engine) nextMove() int {
	if e.pick != nil {
		return (e.pick()%len(Moves) + len(Moves)) % len(Moves)
	}
	return e.rng.IntN(len(Moves))
}

func (e *Engine) ensureConfigured() {
	if e.grid == nil {
		e.Configure(DefaultSize)
	}
}

func (e *Engine) ensureRNG() {
	if e.rng == nil {
		e.rng, e.seed = core.NewTimeRNG()
	}
}
