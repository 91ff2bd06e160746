package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Token", "Draws", "Share"}
	rows := [][]string{
		{"雅", "12", "40.0%"},
		{"風", "3", "10.0%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Token Draws Share" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "雅       12 40.0%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "風        3 10.0%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestDisplayWidthCountsWideRunes(t *testing.T) {
	if w := displayWidth("雅靜"); w != 4 {
		t.Fatalf("expected width 4, got %d", w)
	}
	if w := displayWidth("ab"); w != 2 {
		t.Fatalf("expected width 2, got %d", w)
	}
}
