package tui

import (
	"fmt"
	"math"
	"time"

	"jobagent/internal/domain"
)

// timeAgo renders the age of a created_at value: whole days as "3T", then
// hours, minutes, or "now". Missing or unparseable timestamps render empty.
func timeAgo(created string, now time.Time) string {
	t, ok := domain.ParseTimestamp(created)
	if !ok {
		return ""
	}
	secs := now.Sub(t).Seconds()
	switch {
	case secs/86400 > 1:
		return fmt.Sprintf("%dT", int(secs/86400))
	case secs/3600 > 1:
		return fmt.Sprintf("%dh", int(secs/3600))
	case secs/60 > 1:
		return fmt.Sprintf("%dm", int(secs/60))
	}
	return "now"
}

func scoreLabel(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score)))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
