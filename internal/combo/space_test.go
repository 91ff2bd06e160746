package combo

import (
	"errors"
	"testing"

	"github.com/verte-zerg/namedraw/internal/model"
)

func TestPairIndexRoundTrip(t *testing.T) {
	for _, n := range []int{2, 3, 7, 40} {
		space := New(n)
		seen := map[int]bool{}
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				idx, err := space.PairToIndex(model.Pair{A: a, B: b})
				if err != nil {
					t.Fatalf("N=%d pair (%d,%d): %v", n, a, b, err)
				}
				if seen[idx] {
					t.Fatalf("N=%d duplicate index %d", n, idx)
				}
				seen[idx] = true
				pair, err := space.IndexToPair(idx)
				if err != nil {
					t.Fatalf("N=%d index %d: %v", n, idx, err)
				}
				if pair.A != a || pair.B != b {
					t.Fatalf("N=%d expected (%d,%d), got (%d,%d)", n, a, b, pair.A, pair.B)
				}
			}
		}
		if len(seen) != space.Size() {
			t.Fatalf("N=%d expected %d indices, got %d", n, space.Size(), len(seen))
		}
	}
}

func TestSelfPairsAreValid(t *testing.T) {
	idx, err := New(3).PairToIndex(model.Pair{A: 2, B: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 8 {
		t.Fatalf("expected index 8, got %d", idx)
	}
}

func TestOutOfRange(t *testing.T) {
	space := New(3)
	if _, err := space.IndexToPair(9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := space.IndexToPair(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := space.PairToIndex(model.Pair{A: 3, B: 0}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if space.Contains(9) || !space.Contains(0) {
		t.Fatalf("unexpected Contains result")
	}
}
