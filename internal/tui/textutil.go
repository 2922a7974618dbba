package tui

import "strings"

// truncateEnd shortens s to at most limit runes, ending in an ellipsis when
// anything was cut.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit == 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of s around a single ellipsis. Used for
// links, where the host and the video id both matter.
func truncateMiddle(s string, limit int) string {
	r := []rune(s)
	switch {
	case limit <= 0:
		return ""
	case len(r) <= limit:
		return s
	case limit == 1:
		return "…"
	}
	head := (limit - 1) / 2
	tail := limit - 1 - head
	return string(r[:head]) + "…" + string(r[len(r)-tail:])
}

// sanitizeQuery flattens whitespace and caps the length of typed search text.
func sanitizeQuery(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	if r := []rune(input); len(r) > 256 {
		input = string(r[:256])
	}
	return input
}
