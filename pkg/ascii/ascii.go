// Package ascii lays out plain-text tables for comment banners.
package ascii

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated cell values.
const Ellipsis = "..."

// ColumnSeparator is placed between table columns.
const ColumnSeparator = "  "

// Table aligns rows into columns and returns one string per row.
// Multi-width runes (emoji, CJK, etc.) are accounted for so columns stay
// aligned. Trailing whitespace is trimmed from every line. Short rows are
// padded with empty cells.
func Table(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	columns := 0
	for _, row := range rows {
		if len(row) > columns {
			columns = len(row)
		}
	}

	widths := make([]int, columns)
	for _, row := range rows {
		for i, cell := range row {
			if w := StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for i := 0; i < columns; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if i > 0 {
				sb.WriteString(ColumnSeparator)
			}
			sb.WriteString(PadRight(cell, widths[i]))
		}
		lines = append(lines, strings.TrimRight(sb.String(), " "))
	}
	return lines
}

// PadRight pads value with spaces up to the given display width.
func PadRight(value string, width int) string {
	fill := width - StringWidth(value)
	if fill <= 0 {
		return value
	}
	return value + strings.Repeat(" ", fill)
}

// Truncate shortens value so that its display width fits within width.
// When truncation occurs the tail is replaced with Ellipsis, so a 40 column
// value truncated to 30 keeps 27 columns plus "...".
func Truncate(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if StringWidth(value) <= width {
		return value
	}
	if width <= len(Ellipsis) {
		return substringWithWidth(value, width)
	}
	return substringWithWidth(value, width-len(Ellipsis)) + Ellipsis
}

func substringWithWidth(s string, target int) string {
	if target <= 0 {
		return ""
	}
	width := 0
	var sb strings.Builder
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if width+w > target {
			break
		}
		width += w
		sb.WriteRune(r)
	}
	return sb.String()
}

// StringWidth returns the display width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
