package parse

import "strings"

// Sentinel is the spreadsheet's "no value" marker.
const Sentinel = "-"

// IsBlank reports whether a cell holds no value (empty or the sentinel).
func IsBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == Sentinel
}

// Cell reads a raw cell into its internal form: trimmed, with blanks as "".
func Cell(s string) string {
	if IsBlank(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

// Dash renders an internal value for the sheet, writing the sentinel for "".
func Dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return Sentinel
	}
	return s
}

// IsPlaceholderID reports whether an event id carries no real origin: blank,
// the sentinel, or made only of zeros ("0", "000").
func IsPlaceholderID(id string) bool {
	id = strings.TrimSpace(id)
	if IsBlank(id) {
		return true
	}
	return strings.Trim(id, "0") == ""
}
