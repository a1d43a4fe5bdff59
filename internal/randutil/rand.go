package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded from the provided int64. It centralises
// how the two 64-bit seeds required by rand/v2's PCG are derived so that
// call sites handing in the same seed get the same sequence.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewTimeSeeded returns a *rand.Rand seeded from the current time. Each
// call produces an independently seeded generator; use this for shuffles
// where reproducibility is not wanted.
func NewTimeSeeded() *rand.Rand {
	return New(time.Now().UnixNano())
}

// mix is a splitmix64 finalizer, used to spread low-entropy seeds across
// the full 64-bit state space.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
