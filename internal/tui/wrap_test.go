package tui

import (
	"strings"
	"testing"
)

func plainChips(names ...string) []chip {
	out := make([]chip, 0, len(names))
	for _, n := range names {
		c := buildChips([]string{n})[0]
		c.s = n
		out = append(out, c)
	}
	return out
}

func TestBuildChipsHighlightsNewest(t *testing.T) {
	chips := buildChips([]string{"雅靜", "風雲"})
	if len(chips) != 2 {
		t.Fatalf("expected 2 chips, got %d", len(chips))
	}
	if chips[0].s != recentStyle.Render("雅靜") {
		t.Fatalf("expected recent style for older chip")
	}
	if chips[1].s != latestStyle.Render("風雲") {
		t.Fatalf("expected latest style for newest chip")
	}
	if chips[0].width != 4 {
		t.Fatalf("expected CJK width 4, got %d", chips[0].width)
	}
}

func TestWrapChipsBreaksOnWidth(t *testing.T) {
	// Each name is 4 columns wide; two names plus a gap need 10.
	out := wrapChips(plainChips("雅靜", "風雲", "月星"), 10)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "雅靜  風雲" || lines[1] != "月星" {
		t.Fatalf("unexpected wrap: %q", lines)
	}
}

func TestWrapChipsNoWidth(t *testing.T) {
	out := wrapChips(plainChips("ab", "cd"), 0)
	if out != "ab  cd" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestWrapChipsOversized(t *testing.T) {
	out := wrapChips(plainChips("雅靜", "風雲"), 3)
	if out != "雅靜\n風雲" {
		t.Fatalf("unexpected output: %q", out)
	}
}
