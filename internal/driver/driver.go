// Package driver is the control surface around a walk engine and its series
// recorder: it offers play, pause, single-step and reset, keeps the two modes
// mutually exclusive and fans state changes out to observers.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"walk-ca/internal/core"
	"walk-ca/internal/logging"
	"walk-ca/internal/series"
	"walk-ca/internal/walk"
)

// DefaultInterval is the delay between automatic steps in play mode.
const DefaultInterval = 50 * time.Millisecond

// ErrRunning is returned when an operation requires the idle mode.
var ErrRunning = errors.New("simulation is running")

// Mode is the driver's run state.
type Mode int

const (
	Idle Mode = iota
	Running
)

func (m Mode) String() string {
	if m == Running {
		return "running"
	}
	return "idle"
}

// Config holds the driver settings.
type Config struct {
	Size     int
	Interval time.Duration
	Seed     int64
	Limit    int
}

// DefaultConfig returns the standard driver settings.
func DefaultConfig() Config {
	return Config{Size: walk.DefaultSize, Interval: DefaultInterval, Limit: series.DefaultLimit}
}

// Observer receives engine updates. Calls are made one at a time in step
// order; observers must not call back into the driver. OnReset carries the
// full grid, either after a reconfiguration or when an observer subscribes
// mid-run.
type Observer interface {
	OnReset(snap walk.Snapshot, last series.Point)
	OnStep(res walk.StepResult, point series.Point)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Reset func(walk.Snapshot, series.Point)
	Step  func(walk.StepResult, series.Point)
}

func (f ObserverFuncs) OnReset(s walk.Snapshot, p series.Point) {
	if f.Reset != nil {
		f.Reset(s, p)
	}
}

func (f ObserverFuncs) OnStep(r walk.StepResult, p series.Point) {
	if f.Step != nil {
		f.Step(r, p)
	}
}

// Option customizes a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for mode changes.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithObserver subscribes o to updates.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// WithEngineOptions forwards options to the underlying walk engine.
func WithEngineOptions(opts ...walk.Option) Option {
	return func(d *Driver) { d.engineOpts = append(d.engineOpts, opts...) }
}

// Driver owns an engine and its recorder. It is safe for concurrent use.
type Driver struct {
	mu sync.Mutex

	cfg        Config
	engine     *walk.Engine
	rec        *series.Recorder
	engineOpts []walk.Option
	observers  []Observer
	log        *slog.Logger

	mode   Mode
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a driver and performs the initial configuration.
func New(cfg Config, opts ...Option) *Driver {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	d := &Driver{cfg: cfg, log: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	d.cfg.Size = walk.NormalizeSize(cfg.Size)
	d.engine = walk.NewWithConfig(walk.Config{Size: d.cfg.Size, Seed: cfg.Seed}, d.engineOpts...)
	d.rec = series.New(cfg.Limit)
	d.cfg.Seed = d.engine.Seed()

	d.mu.Lock()
	d.notifyResetLocked()
	d.mu.Unlock()
	d.log.Info("grid initialized", "size", d.cfg.Size, "walker", d.engine.Walker(), "seed", d.cfg.Seed)
	return d
}

// Subscribe adds an observer and immediately replays the current state to it
// as a reset.
func (d *Driver) Subscribe(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
	o.OnReset(d.engine.Snapshot(), d.rec.Last())
}

// Mode reports whether the driver is idle or running.
func (d *Driver) Mode() Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Play starts stepping every Interval until Pause is called or ctx is done.
func (d *Driver) Play(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == Running {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.mode = Running
	d.cancel = cancel
	d.done = done
	go d.loop(ctx, d.cfg.Interval, done)
	d.log.Info("simulation started", "interval", d.cfg.Interval)
	return nil
}

// Pause stops play mode and waits for the stepping goroutine to exit. It is a
// no-op when idle.
func (d *Driver) Pause() {
	d.mu.Lock()
	if d.mode != Running {
		d.mu.Unlock()
		return
	}
	done := d.stopLocked()
	d.mu.Unlock()

	<-done
	d.log.Info("simulation paused", "steps", d.Steps())
}

// Wait blocks until the current play loop, if any, has exited.
func (d *Driver) Wait() {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done != nil {
		<-done
	}
}

// StepOnce performs a single step. It is only allowed while idle.
func (d *Driver) StepOnce() (walk.StepResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == Running {
		return walk.StepResult{}, fmt.Errorf("single step: %w", ErrRunning)
	}
	res := d.stepLocked()
	d.log.Debug("single step performed", "steps", res.Steps, "visited", res.Visited)
	return res, nil
}

// Advance performs n steps synchronously while idle and returns the last result.
func (d *Driver) Advance(n int) (walk.StepResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == Running {
		return walk.StepResult{}, fmt.Errorf("advance %d steps: %w", n, ErrRunning)
	}
	var res walk.StepResult
	for i := 0; i < n; i++ {
		res = d.stepLocked()
	}
	return res, nil
}

// Reset stops play mode and reinitializes the grid. A positive size is
// normalized and becomes the selected size; otherwise the current size is kept.
func (d *Driver) Reset(size int) walk.State {
	return d.Apply(walk.Config{Size: size})
}

// Apply stops play mode and reinitializes the grid from cfg. Size follows
// Reset; a non-zero Seed rewinds the random source so the run can be replayed.
// The driver is idle when Apply returns.
func (d *Driver) Apply(cfg walk.Config) walk.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.mode == Running {
		done := d.stopLocked()
		d.mu.Unlock()
		<-done
		d.mu.Lock()
	}
	if cfg.Size > 0 {
		d.cfg.Size = walk.NormalizeSize(cfg.Size)
	}
	st := d.engine.Apply(walk.Config{Size: d.cfg.Size, Seed: cfg.Seed})
	d.cfg.Seed = d.engine.Seed()
	d.notifyResetLocked()
	d.log.Info("simulation reset", "size", st.Size, "walker", st.Walker, "seed", d.cfg.Seed)
	return st
}

// SetInterval changes the play-mode delay. It takes effect on the next Play.
func (d *Driver) SetInterval(iv time.Duration) {
	if iv <= 0 {
		iv = DefaultInterval
	}
	d.mu.Lock()
	d.cfg.Interval = iv
	d.mu.Unlock()
}

// Interval returns the configured play-mode delay.
func (d *Driver) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Interval
}

// State returns a snapshot of the engine.
func (d *Driver) State() walk.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.State()
}

// Steps returns the number of completed steps.
func (d *Driver) Steps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Steps()
}

// Points returns a copy of the recorded series.
func (d *Driver) Points() []series.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rec.Points()
}

// Last returns the newest series point.
func (d *Driver) Last() series.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rec.Last()
}

// Seed returns the seed of the engine's random source.
func (d *Driver) Seed() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Seed
}

// stopLocked cancels the play loop and returns its done channel. The caller
// waits on it after releasing the lock.
func (d *Driver) stopLocked() chan struct{} {
	d.cancel()
	done := d.done
	d.mode = Idle
	d.cancel = nil
	d.done = nil
	return done
}

func (d *Driver) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			if d.done == done {
				d.mode = Idle
				d.cancel = nil
				d.done = nil
				d.log.Info("simulation stopped", "reason", ctx.Err())
			}
			d.mu.Unlock()
			return
		case <-ticker.C:
			d.mu.Lock()
			// Pause cancels under the lock, so a tick that raced it is dropped.
			if ctx.Err() == nil {
				d.stepLocked()
			}
			d.mu.Unlock()
		}
	}
}

func (d *Driver) stepLocked() walk.StepResult {
	res := d.engine.Step()
	d.rec.Record(res.Steps, res.Visited, res.Total)
	p := d.rec.Last()
	for _, o := range d.observers {
		o.OnStep(res, p)
	}
	return res
}

func (d *Driver) notifyResetLocked() {
	d.rec.Reset()
	snap := d.engine.Snapshot()
	p := d.rec.Last()
	for _, o := range d.observers {
		o.OnReset(snap, p)
	}
}

var _ core.Sim = (*Driver)(nil)

// Name returns the simulation identifier.
func (d *Driver) Name() string { return "walk" }

// Size returns the grid dimensions.
func (d *Driver) Size() core.Size {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Size()
}

// Cells returns a copy of the display buffer.
func (d *Driver) Cells() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint8(nil), d.engine.Cells()...)
}

// WriteCSV writes the recorded series as CSV.
func (d *Driver) WriteCSV(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rec.WriteCSV(w)
}
