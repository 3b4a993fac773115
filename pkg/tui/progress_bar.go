// Package tui provides progress bar rendering for running operations.
package tui

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar renders how far a running operation is through its fixed
// completion delay.
type ProgressBar struct {
	width int
}

// NewProgressBar creates a progress bar renderer.
// width specifies the character width of the bar (excluding brackets and percentage).
func NewProgressBar(width int) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{width: width}
}

// Render outputs a progress bar for the given percentage.
// Returns format: "[████████░░] 80%"
func (p *ProgressBar) Render(percentage float64) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	filledCount := int(percentage / 100 * float64(p.width))
	emptyCount := p.width - filledCount

	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(strings.Repeat("█", filledCount))
	sb.WriteString(strings.Repeat("░", emptyCount))
	sb.WriteString("]")
	sb.WriteString(fmt.Sprintf(" %.0f%%", percentage))
	return sb.String()
}

// CalculatePercentage returns elapsed as a share of total, capped at 100.
func CalculatePercentage(elapsed, total time.Duration) float64 {
	if total <= 0 || elapsed >= total {
		return 100.0
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(total) * 100.0
}
