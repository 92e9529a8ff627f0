package ports

import "math/rand"

// RNGPort provides seeded random number generation so validation sampling
// is reproducible: the same document name and seed always draw the same
// input rows.
type RNGPort interface {
	// SeededStream creates a deterministic generator for a named operation
	SeededStream(name string, seed int64) *rand.Rand
}
