// Package random is the seeded number source shared by every stage of a
// generation run. A Service is owned by exactly one run and is not safe for
// concurrent use.
package random

import (
	"fmt"
	"math/rand"
	"time"
)

// Service draws reproducible numbers from a fixed seed
type Service struct {
	seed int64
	rng  *rand.Rand
}

// New creates a service seeded with seed
func New(seed int64) *Service {
	return &Service{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// NewFromClock creates a service seeded from the wall clock
func NewFromClock() *Service {
	return New(time.Now().UnixNano())
}

// Seed returns the seed the service was created with
func (s *Service) Seed() int64 {
	return s.seed
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (s *Service) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("random: Intn bound %d must be positive", n))
	}
	return s.rng.Intn(n)
}

// IntRange returns a value in [lo, hi]. It panics if hi < lo.
func (s *Service) IntRange(lo, hi int) int {
	if hi < lo {
		panic(fmt.Sprintf("random: empty range [%d, %d]", lo, hi))
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Int63 returns a non-negative 63-bit value, used to seed derived generators
func (s *Service) Int63() int64 {
	return s.rng.Int63()
}

// Float64 returns a value in [0, 1)
func (s *Service) Float64() float64 {
	return s.rng.Float64()
}

// FloatRange returns a value in [lo, hi). It panics if hi < lo.
func (s *Service) FloatRange(lo, hi float64) float64 {
	if hi < lo {
		panic(fmt.Sprintf("random: empty range [%g, %g)", lo, hi))
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// Shuffle permutes n elements through swap
func (s *Service) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// golden ratio increment, spreads consecutive attempts across the seed space
const seedStride = -7046029254386353131 // 0x9E3779B97F4A7C15 as int64

// Derive returns the seed for retry attempt n of a run seeded with seed.
// Attempt 0 is the seed itself.
func Derive(seed int64, attempt int) int64 {
	return seed + int64(attempt)*seedStride
}
