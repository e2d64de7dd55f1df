// Package indent converts runs of leading whitespace into indentation columns.
package indent

import "strings"

// Measure returns the column reached by scanning whitespace forward from start.
// A tab advances the column by tabWidth, any other whitespace by one, and a
// newline resets the column to zero, so only the last line of the run counts.
// Blank lines inside the run therefore never read as a dedent.
func Measure(text string, start, tabWidth int) int {
	col := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '\t':
			col += tabWidth
		case '\n':
			col = 0
		case ' ', '\r', '\f', '\v':
			col++
		default:
			return col
		}
	}
	return col
}

// MeasureSecondLine returns the indentation of the line following the first
// newline in text. ok is false when text is a single line.
func MeasureSecondLine(text string, tabWidth int) (col int, ok bool) {
	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		return 0, false
	}
	return Measure(text, nl+1, tabWidth), true
}

// IsBlank reports whether the line contains only whitespace.
func IsBlank(line string) bool {
	return strings.TrimLeft(line, " \t\r\f\v") == ""
}
