package phrase

import "math/rand"

// RNG selects a uniformly distributed float in [0,1) to drive weighted
// alternative selection. Generation never reads from a package-level global
// random source; a caller that wants determinism supplies a seeded RNG.
type RNG interface {
	Float64() float64
}

// DefaultRNG returns an RNG backed by math/rand. Two DefaultRNGs built from
// the same seed produce identical sequences of picks.
func DefaultRNG(seed int64) RNG {
	return rand.New(rand.NewSource(seed))
}
