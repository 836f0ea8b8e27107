package tui

import (
	"fmt"
	"math"
	"time"
)

// formatTime renders a timestamp as a short clock time
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}

// formatDate renders a timestamp relative to now for recent dates
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now()
	days := int(now.Sub(t).Hours() / 24)

	switch {
	case days < 1:
		return "Today"
	case days < 2:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	}
	return t.Local().Format("Jan 2, 2006")
}

// formatDateTime renders a full timestamp
func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

// formatFileSize renders a byte count in human units
func formatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Log(float64(bytes)) / math.Log(1024))
	if i >= len(units) {
		i = len(units) - 1
	}
	value := float64(bytes) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%.4g %s", value, units[i])
}

// statusColor maps a consultation status onto a tview color tag
func statusColor(status string) string {
	switch status {
	case "pending":
		return "[yellow]"
	case "active", "in_progress":
		return "[blue]"
	case "completed":
		return "[green]"
	case "cancelled":
		return "[red]"
	default:
		return "[yellow]"
	}
}
