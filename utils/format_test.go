package utils

import (
	"math"
	"strings"
	"testing"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{125, "02:05"},
		{3725, "1:02:05"},
		{0, "--:--"},
		{-5, "--:--"},
		{math.NaN(), "--:--"},
		{math.Inf(1), "--:--"},
		{59, "00:59"},
		{60, "01:00"},
		{3600, "1:00:00"},
	}

	for _, test := range tests {
		if got := FormatTime(test.seconds); got != test.expected {
			t.Errorf("FormatTime(%v) = %q, want %q", test.seconds, got, test.expected)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		bytesPerSec float64
		expected    string
	}{
		{500, "500 B/s"},
		{2048, "2 KB/s"},
		{2 * 1024 * 1024, "2.0 MB/s"},
		{0, "0 B/s"},
		{1536 * 1024, "1.5 MB/s"},
	}

	for _, test := range tests {
		if got := FormatSpeed(test.bytesPerSec); got != test.expected {
			t.Errorf("FormatSpeed(%v) = %q, want %q", test.bytesPerSec, got, test.expected)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, test := range tests {
		if got := FormatSize(test.bytes); got != test.expected {
			t.Errorf("FormatSize(%d) = %q, want %q", test.bytes, got, test.expected)
		}
	}
}

func TestFormatViews(t *testing.T) {
	tests := []struct {
		views    int64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1200, "1K"},
		{3500, "4K"},
		{1_200_000, "1.2M"},
		{2_500_000_000, "2.5B"},
	}

	for _, test := range tests {
		if got := FormatViews(test.views); got != test.expected {
			t.Errorf("FormatViews(%d) = %q, want %q", test.views, got, test.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{0, ""},
		{65, "1:05"},
		{3725, "1:02:05"},
		{605, "10:05"},
	}

	for _, test := range tests {
		if got := FormatDuration(test.seconds); got != test.expected {
			t.Errorf("FormatDuration(%d) = %q, want %q", test.seconds, got, test.expected)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{`My Video: The "Best" <Part 1>`, "My Video_ The _Best_ _Part 1_"},
		{`a/b\c|d?e*f`, "a_b_c_d_e_f"},
		{"plain name.mp4", "plain name.mp4"},
	}

	for _, test := range tests {
		if got := SanitizeFilename(test.name); got != test.expected {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", test.name, got, test.expected)
		}
	}

	long := strings.Repeat("x", 300) + ".mp4"
	if got := SanitizeFilename(long); len(got) != 200 {
		t.Errorf("SanitizeFilename should cap at 200 chars, got %d", len(got))
	}
}
