// Package rng implements the second-order linear congruential generator
// every kernel uses to build its problem instance.
//
// The generator is deliberately not seedable in the usual sense: any non-zero
// seed passed to Reseed restores the same canonical state, so that every
// worker, and every iteration that reseeds, operates on identical data.
package rng

const (
	mulCurrent  int32 = 254754
	mulPrevious int32 = 529562
	modulus     int32 = 999563

	initCurrent  int32 = 13
	initPrevious int32 = 117
)

// Sequence holds the two-word generator state. The zero value is not in the
// canonical state; use New.
//
// A Sequence must not be shared between goroutines. Each worker owns one.
type Sequence struct {
	w0, w1 int32
}

// New returns a generator in the canonical state. No value is consumed.
func New() *Sequence {
	return &Sequence{w0: initCurrent, w1: initPrevious}
}

// Reseed restores the canonical state when seed is non-zero and returns the
// next value. The seed itself is never mixed into the state.
//
// A zero seed leaves the state untouched and simply advances it, which is how
// Next is defined.
func (s *Sequence) Reseed(seed int32) int32 {
	if seed != 0 {
		s.w0 = initCurrent
		s.w1 = initPrevious
	}
	return s.Next()
}

// Next advances the recurrence v = (w0*C1 + w1*C2) mod M and returns v.
// All arithmetic wraps at 32 bits, so the value may be negative.
func (s *Sequence) Next() int32 {
	v := (s.w0*mulCurrent + s.w1*mulPrevious) % modulus
	s.w1 = s.w0
	s.w0 = v
	return v
}

// NextBounded returns Next() mod n with the sign of the dividend.
func (s *Sequence) NextBounded(n int32) int32 {
	return s.Next() % n
}

// NextPositiveBounded returns |NextBounded(n)|, a value in [0, n).
func (s *Sequence) NextPositiveBounded(n int32) int32 {
	v := s.NextBounded(n)
	if v < 0 {
		v = -v
	}
	return v
}

// State returns the two state words, most recent first.
func (s *Sequence) State() (int32, int32) {
	return s.w0, s.w1
}
