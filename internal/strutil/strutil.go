// SPDX-License-Identifier: MIT
package strutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// Ellipsis is appended to values cut by Truncate.
const Ellipsis = "..."

// SplitCSV parses a comma-separated string into trimmed non-empty values.
func SplitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			return v
		}
	}
	return ""
}

// Truncate limits s to width display cells, counting wide runes as two.
// Values that fit are returned unchanged. width <= 0 disables truncation.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= len(Ellipsis) {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, Ellipsis)
}

// RelativeTime renders t relative to now: minutes or hours for today,
// "yesterday", days within a week, weeks within a month, and the plain
// date after that. A nil time renders as "unknown".
func RelativeTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "unknown"
	}
	delta := now.Sub(*t)
	if delta < 0 {
		delta = 0
	}
	days := int(delta.Hours() / 24)
	switch {
	case days == 0:
		if hours := int(delta.Hours()); hours > 0 {
			return fmt.Sprintf("%dh ago", hours)
		}
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	case days < 30:
		return fmt.Sprintf("%dw ago", days/7)
	default:
		return t.Format("2006-01-02")
	}
}
