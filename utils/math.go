package utils

import (
	"math"
	"math/rand"
)

// MaxInt returns the maximum of two ints.
func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MinInt returns the minimum of two ints.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// ClampF64 restricts n to [low, high].
func ClampF64(n, low, high float64) float64 {
	return math.Max(low, math.Min(high, n))
}

// SampleRandomIntRange samples a random integer within a range given by [min, max]
// using the given rand.Rand.
func SampleRandomIntRange(min, max int, r *rand.Rand) int {
	return r.Intn(max-min+1) + min
}
