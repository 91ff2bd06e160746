package stats

import (
	"os"

	"golang.org/x/term"
)

const terminalWidthBackup = 80

// TerminalWidth returns the stdout width, or 80 when stdout is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// BarWidthFor sizes a progress bar to fit a terminal of totalWidth columns.
func BarWidthFor(totalWidth int) int {
	width := totalWidth - 40
	if width < 10 {
		return 10
	}
	if width > 50 {
		return 50
	}
	return width
}
