package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const chipGap = "  "

type chip struct {
	s     string
	width int
}

// buildChips styles recent names; the newest is highlighted.
func buildChips(names []string) []chip {
	out := make([]chip, 0, len(names))
	for i, name := range names {
		style := recentStyle
		if i == len(names)-1 {
			style = latestStyle
		}
		out = append(out, chip{
			s:     style.Render(name),
			width: runewidth.StringWidth(name),
		})
	}
	return out
}

func renderChips(chips []chip) string {
	parts := make([]string, len(chips))
	for i, c := range chips {
		parts[i] = c.s
	}
	return strings.Join(parts, chipGap)
}

// wrapChips lays chips out in lines no wider than width. A chip wider than width gets a line of its own.
func wrapChips(chips []chip, width int) string {
	if width <= 0 {
		return renderChips(chips)
	}
	gap := runewidth.StringWidth(chipGap)
	var lines []string
	line := make([]chip, 0, len(chips))
	lineWidth := 0
	for _, c := range chips {
		needed := c.width
		if len(line) > 0 {
			needed += gap
		}
		if lineWidth+needed > width && len(line) > 0 {
			lines = append(lines, renderChips(line))
			line = line[:0]
			lineWidth = 0
			needed = c.width
		}
		line = append(line, c)
		lineWidth += needed
	}
	if len(line) > 0 {
		lines = append(lines, renderChips(line))
	}
	return strings.Join(lines, "\n")
}
