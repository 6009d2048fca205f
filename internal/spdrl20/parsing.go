package spdrl20

import "strings"

// ToBool reports whether a wire payload represents a true-ish value.
// Everything other than these literal forms is false (spec.md §6).
func ToBool(v string) bool {
	switch v {
	case "1", "t", "T", "true", "True", "y", "yes":
		return true
	default:
		return false
	}
}

func boolDigit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func joinFields(fields ...string) string {
	return strings.Join(fields, ",")
}
