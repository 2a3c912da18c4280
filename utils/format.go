package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatTime renders a remaining-time estimate as H:MM:SS (over an hour)
// or MM:SS. Zero, negative or non-finite input renders as "--:--".
func FormatTime(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "--:--"
	}

	mins := int(seconds) / 60
	secs := int(seconds) % 60
	hours := mins / 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins%60, secs)
	}
	return fmt.Sprintf("%02d:%02d", mins, secs)
}

// FormatSpeed renders bytes/sec as "2.0 MB/s", "2 KB/s" or "500 B/s".
func FormatSpeed(bytesPerSec float64) string {
	switch {
	case bytesPerSec >= 1024*1024:
		return fmt.Sprintf("%.1f MB/s", bytesPerSec/(1024*1024))
	case bytesPerSec >= 1024:
		return fmt.Sprintf("%.0f KB/s", bytesPerSec/1024)
	default:
		return fmt.Sprintf("%d B/s", int(math.Round(bytesPerSec)))
	}
}

// FormatSize renders a byte count as GB/MB/KB with one decimal.
func FormatSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatViews renders a view count YouTube style: 1.2B, 3.5M, 12K.
func FormatViews(views int64) string {
	switch {
	case views >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(views)/1_000_000_000)
	case views >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(views)/1_000_000)
	case views >= 1_000:
		return fmt.Sprintf("%.0fK", float64(views)/1_000)
	default:
		return fmt.Sprintf("%d", views)
	}
}

// FormatDuration renders a media duration as H:MM:SS or M:SS, empty for
// unknown. Display style differs from FormatTime: minutes are unpadded and
// zero means "no duration" rather than "done".
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return ""
	}

	mins, secs := seconds/60, seconds%60
	hours, mins := mins/60, mins%60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

var filenameReplacer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", "\"", "_",
	"/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename strips characters that are illegal in filenames and caps
// the result at 200 characters.
func SanitizeFilename(name string) string {
	clean := filenameReplacer.Replace(name)
	runes := []rune(clean)
	if len(runes) > 200 {
		runes = runes[:200]
	}
	return string(runes)
}
