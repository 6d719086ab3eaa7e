// Package table renders selectable, viewport-scrolled text tables for
// the interactive screens.
package table

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TruncateMode specifies how to truncate content that's too long
type TruncateMode int

const (
	TruncateEnd   TruncateMode = iota // Truncate from end: "hello…" (default)
	TruncateStart                     // Truncate from start: "…world" (good for paths)
)

// Column defines a table column configuration
type Column struct {
	Header       string       // Column header text
	Width        int          // Fixed width (0 = flexible)
	MinWidth     int          // Minimum width for flexible columns
	Weight       float64      // Weight for distributing remaining space (default 1.0)
	Truncate     bool         // Truncate with ellipsis if content too long
	TruncateMode TruncateMode // How to truncate
}

// Row represents a table row
type Row struct {
	Cells []string       // Cell contents (one per column)
	Style lipgloss.Style // Optional row-level style override
}

// Table holds table state and configuration
type Table struct {
	Columns        []Column
	Rows           []Row
	SelectedIndex  int // Currently selected row (-1 for none)
	ViewportOffset int // First visible row index
	ViewportHeight int // Number of visible rows (0 = show all)
	TerminalWidth  int
	Padding        int // Spaces between columns

	HeaderStyle   lipgloss.Style
	SelectedStyle lipgloss.Style
	SeparatorChar string
}

// New creates a new Table with the given columns
func New(columns ...Column) *Table {
	return &Table{
		Columns:       columns,
		SelectedIndex: -1,
		TerminalWidth: 120,
		Padding:       2,
		HeaderStyle:   lipgloss.NewStyle(),
		SelectedStyle: lipgloss.NewStyle().Reverse(true),
		SeparatorChar: "─",
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, Row{Cells: cells})
}

// AddStyledRow adds a row with a row-level style
func (t *Table) AddStyledRow(style lipgloss.Style, cells ...string) {
	t.Rows = append(t.Rows, Row{Cells: cells, Style: style})
}

// ClearRows removes all rows from the table
func (t *Table) ClearRows() {
	t.Rows = nil
}

// widths computes column widths: fixed columns take their width, then
// the rest of the terminal line is split over flexible columns by
// weight, clamped to MinWidth and capped at the widest cell.
func (t *Table) widths() []int {
	if len(t.Columns) == 0 {
		return nil
	}

	content := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		content[i] = StringWidth(col.Header)
	}
	for _, row := range t.Rows {
		for i, cell := range row.Cells {
			if i < len(content) {
				if w := StringWidth(cell); w > content[i] {
					content[i] = w
				}
			}
		}
	}

	widths := make([]int, len(t.Columns))
	remaining := t.TerminalWidth - t.Padding*(len(t.Columns)-1)
	var totalWeight float64
	var flexible []int
	for i, col := range t.Columns {
		if col.Width > 0 {
			widths[i] = col.Width
			remaining -= col.Width
		} else {
			totalWeight += col.weight()
			flexible = append(flexible, i)
		}
	}
	if remaining < 0 {
		remaining = 0
	}

	leftover := remaining
	for _, i := range flexible {
		col := t.Columns[i]
		w := int(float64(remaining) * col.weight() / totalWeight)
		if w > content[i] {
			w = content[i]
		}
		if col.MinWidth > 0 && w < col.MinWidth {
			w = col.MinWidth
		}
		if w < 1 {
			w = 1
		}
		widths[i] = w
		leftover -= w
	}

	// Spare space goes to flexible columns whose content wants it
	for j := len(flexible) - 1; j >= 0 && leftover > 0; j-- {
		i := flexible[j]
		if add := content[i] - widths[i]; add > 0 {
			if add > leftover {
				add = leftover
			}
			widths[i] += add
			leftover -= add
		}
	}

	return widths
}

func (c *Column) weight() float64 {
	if c.Weight <= 0 {
		return 1.0
	}
	return c.Weight
}

func (t *Table) formatCell(value string, col Column, width int) string {
	if col.Truncate && StringWidth(value) > width {
		if col.TruncateMode == TruncateStart {
			value = TruncateFromStart(value, width)
		} else {
			value = TruncateWithEllipsis(value, width)
		}
	}
	return PadRight(value, width)
}

// VisibleRows returns the slice of rows currently visible in the viewport
func (t *Table) VisibleRows() []Row {
	if len(t.Rows) == 0 {
		return nil
	}
	start := t.ViewportOffset
	if start < 0 {
		start = 0
	}
	if start >= len(t.Rows) {
		start = len(t.Rows) - 1
	}
	end := len(t.Rows)
	if t.ViewportHeight > 0 && start+t.ViewportHeight < end {
		end = start + t.ViewportHeight
	}
	return t.Rows[start:end]
}

// EnsureCursorVisible adjusts viewport to keep the selected row visible
func (t *Table) EnsureCursorVisible() {
	if t.SelectedIndex < 0 || t.ViewportHeight <= 0 {
		return
	}
	if t.SelectedIndex < t.ViewportOffset {
		t.ViewportOffset = t.SelectedIndex
	}
	if t.SelectedIndex >= t.ViewportOffset+t.ViewportHeight {
		t.ViewportOffset = t.SelectedIndex - t.ViewportHeight + 1
	}
	maxOffset := len(t.Rows) - t.ViewportHeight
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.ViewportOffset > maxOffset {
		t.ViewportOffset = maxOffset
	}
	if t.ViewportOffset < 0 {
		t.ViewportOffset = 0
	}
}

// MoveSelection moves the selection by delta rows (positive = down)
func (t *Table) MoveSelection(delta int) {
	if len(t.Rows) == 0 {
		return
	}
	t.SelectedIndex += delta
	if t.SelectedIndex < 0 {
		t.SelectedIndex = 0
	}
	if t.SelectedIndex >= len(t.Rows) {
		t.SelectedIndex = len(t.Rows) - 1
	}
	t.EnsureCursorVisible()
}

// SelectedRow returns the currently selected row, or nil if none selected
func (t *Table) SelectedRow() *Row {
	if t.SelectedIndex < 0 || t.SelectedIndex >= len(t.Rows) {
		return nil
	}
	return &t.Rows[t.SelectedIndex]
}

// Render returns the complete table as a string (header, separator, rows)
func (t *Table) Render() string {
	widths := t.widths()
	if len(widths) == 0 {
		return ""
	}
	sep := strings.Repeat(" ", t.Padding)

	headerParts := make([]string, len(t.Columns))
	total := t.Padding * (len(t.Columns) - 1)
	for i, col := range t.Columns {
		headerParts[i] = t.formatCell(col.Header, col, widths[i])
		total += widths[i]
	}

	var b strings.Builder
	b.WriteString(t.HeaderStyle.Render(strings.Join(headerParts, sep)))
	b.WriteString("\n")
	b.WriteString(strings.Repeat(t.SeparatorChar, total))

	for i, row := range t.VisibleRows() {
		parts := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			cell := ""
			if j < len(row.Cells) {
				cell = row.Cells[j]
			}
			parts[j] = t.formatCell(cell, col, widths[j])
		}
		line := strings.Join(parts, sep)
		if t.ViewportOffset+i == t.SelectedIndex {
			line = t.SelectedStyle.Inherit(row.Style).Render(line)
		} else {
			line = row.Style.Render(line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}

	return b.String()
}
