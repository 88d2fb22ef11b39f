package domain

import (
	"fmt"
	"time"
)

// FormatDuration renders a duration as H:MM:SS, or M:SS below one hour. Zero renders as N/A.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "N/A"
	}
	total := int(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
