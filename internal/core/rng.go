package core

import (
	"math/rand/v2"
	"time"
)

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	pcg *rand.PCG
	r   *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	pcg := rand.NewPCG(uint64(seed), 0)
	return &RNG{pcg: pcg, r: rand.New(pcg)}
}

// NewTimeRNG seeds an RNG from the wall clock and reports the seed used so a
// run can be replayed.
func NewTimeRNG() (*RNG, int64) {
	seed := time.Now().UnixNano()
	return NewRNG(seed), seed
}

// Seed rewinds the generator to the stream identified by seed.
func (r *RNG) Seed(seed int64) {
	r.pcg.Seed(uint64(seed), 0)
}

// IntN returns a random int in [0, n). It returns 0 when n <= 0.
func (r *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}
