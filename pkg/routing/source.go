package routing

import (
	"sync"
	"time"

	"github.com/MichaelTJones/pcg"
)

// RandomSource supplies uniform values in [0, 1).
// Implementations are injected into the generator and the arc builder so route
// sets can be reproduced from a seed or scripted in tests.
type RandomSource interface {
	Float64() float64
}

// pcgIncrement selects the PCG stream; any odd constant works.
const pcgIncrement = 0xda3e39cb94b95bdb

// Source is a seedable PCG32 random source. It is safe for concurrent use.
type Source struct {
	mu sync.Mutex
	r  *pcg.PCG32
}

// NewSource returns a source seeded with seed.
func NewSource(seed int64) *Source {
	s := &Source{r: pcg.NewPCG32()}
	s.r.Seed(uint64(seed), pcgIncrement)
	return s
}

// NewTimeSource returns a source seeded from the wall clock.
func NewTimeSource() *Source {
	return NewSource(time.Now().UnixNano())
}

// Float64 returns a value in [0, 1) built from 53 random bits.
func (s *Source) Float64() float64 {
	s.mu.Lock()
	hi := uint64(s.r.Random())
	lo := uint64(s.r.Random())
	s.mu.Unlock()

	return float64((hi<<32|lo)>>11) / (1 << 53)
}

// Intn returns a value in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.r.Bounded(uint32(n)))
}

// Sequence replays a fixed list of values, cycling when exhausted.
// It is intended for tests and for reproducing a reported route set.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence returns a source that yields values in order.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next scripted value. An empty sequence always yields 0.
func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws reports how many values have been consumed.
func (s *Sequence) Draws() int {
	return s.next
}

// Constant always returns the same value.
type Constant float64

// Float64 returns c.
func (c Constant) Float64() float64 {
	return float64(c)
}
