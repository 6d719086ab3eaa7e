package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// StringWidth returns the display width of a string in terminal cells.
// Accounts for wide characters (CJK, emojis, etc.) AND ANSI escape codes.
func StringWidth(s string) int {
	return lipgloss.Width(s)
}

// TruncateWithEllipsis truncates a string to fit within maxWidth display
// cells, adding "…" if truncated. Handles wide characters correctly.
func TruncateWithEllipsis(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}

	result := make([]rune, 0, len(s))
	currentWidth := 0
	targetWidth := maxWidth - 1
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if currentWidth+rw > targetWidth {
			break
		}
		result = append(result, r)
		currentWidth += rw
	}
	return string(result) + "…"
}

// TruncateFromStart truncates a string from the beginning, keeping the
// end. Useful for paths where the end is more relevant.
func TruncateFromStart(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}

	runes := []rune(s)
	result := make([]rune, 0, len(runes))
	currentWidth := 0
	targetWidth := maxWidth - 1
	for i := len(runes) - 1; i >= 0; i-- {
		rw := runewidth.RuneWidth(runes[i])
		if currentWidth+rw > targetWidth {
			break
		}
		result = append([]rune{runes[i]}, result...)
		currentWidth += rw
	}
	return "…" + string(result)
}

// PadRight pads a string to the specified display width with spaces.
// If the string is wider than width, it is truncated.
func PadRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	strWidth := lipgloss.Width(s)
	if strWidth >= width {
		return TruncateWithEllipsis(s, width)
	}
	return s + strings.Repeat(" ", width-strWidth)
}
