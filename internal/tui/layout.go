package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fitLine cuts s to width columns (ANSI-aware), marking the cut with an ellipsis, and
// terminates styling so a cut sequence cannot bleed into the next line.
func fitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return xansi.Cut(s, 0, 1) + "\x1b[0m"
	}
	return xansi.Cut(s, 0, width-1) + "…\x1b[0m"
}

// padRight fills s with spaces to exactly width columns.
func padRight(s string, width int) string {
	s = fitLine(s, width)
	if w := xansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
