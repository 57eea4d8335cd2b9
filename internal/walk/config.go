package walk

import (
	"strconv"
	"strings"
)

const (
	// MinSize is the smallest accepted grid side length.
	MinSize = 2
	// MaxSize is the largest accepted grid side length.
	MaxSize = 200
	// DefaultSize is used when the requested size is absent or unparseable.
	DefaultSize = 20
)

// Config controls the walk simulation.
type Config struct {
	Size int
	Seed int64
}

// DefaultConfig returns the standard configuration. A zero seed means the
// engine seeds itself from the clock.
func DefaultConfig() Config {
	return Config{Size: DefaultSize}
}

// FromMap populates a Config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["size"]; ok {
		c.Size = ParseSize(v)
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	return c
}

// NormalizeSize clamps a requested side length into [MinSize, MaxSize].
// Non-positive requests fall back to DefaultSize.
func NormalizeSize(n int) int {
	if n <= 0 {
		return DefaultSize
	}
	if n < MinSize {
		return MinSize
	}
	if n > MaxSize {
		return MaxSize
	}
	return n
}

// ParseSize reads a side length from user input. Leading whitespace and an
// optional sign are accepted and parsing stops at the first non-digit, so
// "35px" yields 35. Input without leading digits yields DefaultSize.
func ParseSize(raw string) int {
	s := strings.TrimSpace(raw)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return DefaultSize
	}
	if neg {
		return DefaultSize
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Only digits remain, so this is an overflow.
		return MaxSize
	}
	return NormalizeSize(n)
}
