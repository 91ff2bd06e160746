// Package combo encodes ordered token pairs as integer indices.
package combo

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/namedraw/internal/model"
)

// ErrIndexOutOfRange signals a pair or index outside the universe. It indicates corrupted state.
var ErrIndexOutOfRange = errors.New("index out of range")

// Space is the set of ordered pairs over an N-token universe.
type Space struct {
	n int
}

// New returns the pair space over n tokens.
func New(n int) Space {
	if n < 0 {
		n = 0
	}
	return Space{n: n}
}

// N returns the token count.
func (s Space) N() int {
	return s.n
}

// Size returns N².
func (s Space) Size() int {
	return s.n * s.n
}

// PairToIndex encodes (a, b) as a*N+b.
func (s Space) PairToIndex(p model.Pair) (int, error) {
	if p.A < 0 || p.A >= s.n || p.B < 0 || p.B >= s.n {
		return 0, fmt.Errorf("pair (%d,%d) with N=%d: %w", p.A, p.B, s.n, ErrIndexOutOfRange)
	}
	return p.A*s.n + p.B, nil
}

// IndexToPair decodes i into (i div N, i mod N).
func (s Space) IndexToPair(i int) (model.Pair, error) {
	if i < 0 || i >= s.Size() {
		return model.Pair{}, fmt.Errorf("index %d with N=%d: %w", i, s.n, ErrIndexOutOfRange)
	}
	return model.Pair{A: i / s.n, B: i % s.n}, nil
}

// Contains reports whether i is a valid index.
func (s Space) Contains(i int) bool {
	return i >= 0 && i < s.Size()
}
