// Package rng implements the seeded RNG port. Stream identity is folded
// into the seed so differently named operations never share a sequence.
package rng

import (
	"hash/fnv"
	"math/rand"
)

type Seeded struct{}

func New() *Seeded {
	return &Seeded{}
}

func (*Seeded) SeededStream(name string, seed int64) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return rand.New(rand.NewSource(seed ^ int64(h.Sum64())))
}
