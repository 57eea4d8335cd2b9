package app

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"walk-ca/internal/driver"
	"walk-ca/internal/walk"
)

// Config represents the command-line and file parameters for the walk tools.
type Config struct {
	Size       int           `yaml:"size"`
	Interval   time.Duration `yaml:"interval"`
	Seed       int64         `yaml:"seed"`
	GridPixels int           `yaml:"grid_pixels"`
	HUDWidth   int           `yaml:"hud_width"`
	LogLevel   string        `yaml:"log_level"`
	Addr       string        `yaml:"addr"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Size:       walk.DefaultSize,
		Interval:   driver.DefaultInterval,
		GridPixels: 500,
		HUDWidth:   220,
		LogLevel:   "info",
		Addr:       ":8080",
	}
}

// Bind attaches the configuration to the provided FlagSet. The size flag is
// parsed leniently and normalized like any other size input.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.Func("size", "grid side length in cells (2-200, default "+strconv.Itoa(walk.DefaultSize)+")", func(s string) error {
		c.Size = walk.ParseSize(s)
		return nil
	})
	fs.DurationVar(&c.Interval, "interval", c.Interval, "delay between automatic steps")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for the walker (0 seeds from the clock)")
	fs.IntVar(&c.GridPixels, "grid-px", c.GridPixels, "on-screen grid side in pixels")
	fs.IntVar(&c.HUDWidth, "hud-width", c.HUDWidth, "width of the side panel in pixels")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address for the websocket stream")
}

var fileFields = []struct {
	flag string
	copy func(dst, src *Config)
}{
	{"size", func(d, s *Config) { d.Size = s.Size }},
	{"interval", func(d, s *Config) { d.Interval = s.Interval }},
	{"seed", func(d, s *Config) { d.Seed = s.Seed }},
	{"grid-px", func(d, s *Config) { d.GridPixels = s.GridPixels }},
	{"hud-width", func(d, s *Config) { d.HUDWidth = s.HUDWidth }},
	{"log-level", func(d, s *Config) { d.LogLevel = s.LogLevel }},
	{"addr", func(d, s *Config) { d.Addr = s.Addr }},
}

// LoadFile overlays values from a YAML file. Fields whose flag was set
// explicitly (changed reports true) keep their command-line value.
func (c *Config) LoadFile(path string, changed func(flag string) bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	file := *c
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}
	for _, f := range fileFields {
		if !changed(f.flag) {
			f.copy(c, &file)
		}
	}
	return nil
}

// DriverConfig converts the settings into a driver configuration.
func (c *Config) DriverConfig() driver.Config {
	cfg := driver.DefaultConfig()
	cfg.Size = walk.NormalizeSize(c.Size)
	if c.Interval > 0 {
		cfg.Interval = c.Interval
	}
	cfg.Seed = c.Seed
	return cfg
}

// GridSide returns the on-screen grid side, falling back to 500 pixels.
func (c *Config) GridSide() int {
	if c.GridPixels <= 0 {
		return 500
	}
	return c.GridPixels
}

// ChartHeight returns the chart panel height: half the bordered grid height,
// at least 150 pixels.
func (c *Config) ChartHeight() int {
	h := int(math.Round(float64(c.GridSide()+2) / 2))
	if h < 150 {
		h = 150
	}
	return h
}
