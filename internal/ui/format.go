package ui

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatByteCount renders an exact byte count with digit grouping,
// e.g. "1,234,567 bytes".
func FormatByteCount(b int64) string {
	if b == 1 {
		return "1 byte"
	}
	return humanize.Comma(b) + " bytes"
}

// FormatCount groups digits, e.g. 4049571 -> "4,049,571".
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
