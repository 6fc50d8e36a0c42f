// Package textutil holds small text helpers shared by terminal output code.
package textutil

import "strings"

// CollapseWhitespace folds runs of whitespace, newlines included, into single
// spaces so multi-line error messages fit on one table row.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut. A max below 4 returns the bare prefix.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max < 4 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// Cell prepares an arbitrary string for a single table cell.
func Cell(s string, max int) string {
	return Truncate(CollapseWhitespace(s), max)
}
