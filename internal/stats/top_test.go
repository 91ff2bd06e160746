package stats

import (
	"testing"

	"github.com/verte-zerg/namedraw/internal/model"
)

func TestTopTokens(t *testing.T) {
	counts := []model.TokenCount{
		{Token: "雅", Count: 4},
		{Token: "風", Count: 2},
		{Token: "月", Count: 0},
	}
	top := TopTokens(counts, 5)
	if len(top) != 2 {
		t.Fatalf("expected 2 tokens, got %d (%v)", len(top), top)
	}
	if top[0] != "雅" || top[1] != "風" {
		t.Fatalf("unexpected order: %v", top)
	}
	if TopTokens(counts, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}
