package hal

import "strings"

// Shared helpers used by GPIO code and config parsing.

// ParsePull converts a config string to a Pull.
// Accepts: "up", "down", "none" (case-insensitive); anything else is none.
func ParsePull(s string) Pull {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "pullup":
		return PullUp
	case "down", "pulldown":
		return PullDown
	default:
		return PullNone
	}
}

func PullString(p Pull) string {
	switch p {
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	default:
		return "none"
	}
}

// ParseEdge converts a string to an Edge enum.
// Accepts: "rising", "falling", "both", "none" (case-insensitive).
func ParseEdge(s string) Edge {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rising":
		return EdgeRising
	case "falling":
		return EdgeFalling
	case "both":
		return EdgeBoth
	default:
		return EdgeNone
	}
}

func EdgeString(e Edge) string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
