// Package sampler implements the seeded weighted shuffle behind the "For You"
// rail. Output is bit-identical to other ports of the same generator: a
// Mulberry32 scramble over 32-bit wraparound state.
package sampler

// zeroSeedState replaces a zero seed so the generator never starts from the
// all-zero state.
const zeroSeedState uint32 = 0x6D2B79F5

const increment uint32 = 0x6D2B79F5

// Rand is a Mulberry32 pseudo-random generator. It is not safe for concurrent use.
type Rand struct {
	state uint32
}

// NewRand returns a generator seeded with seed. Seed 0 is remapped to a fixed non-zero state.
func NewRand(seed uint32) *Rand {
	if seed == 0 {
		seed = zeroSeedState
	}
	return &Rand{state: seed}
}

// Uint32 advances the generator and returns the next 32-bit output.
func (r *Rand) Uint32() uint32 {
	r.state += increment
	t := (r.state ^ (r.state >> 15)) * (r.state | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296.0
}
