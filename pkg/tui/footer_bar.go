// Package tui provides footer bar rendering for the TUI dashboard.
package tui

import "fmt"

// FooterBar renders the keyboard shortcuts footer.
type FooterBar struct {
	terminalWidth int
}

// NewFooterBar creates a footer bar renderer.
func NewFooterBar(width int) *FooterBar {
	return &FooterBar{
		terminalWidth: width,
	}
}

// SetWidth updates the terminal width for the footer bar.
func (f *FooterBar) SetWidth(width int) {
	f.terminalWidth = width
}

// Render outputs the footer bar content.
// Full (width >= 80): "↑/↓: Select | Enter: Run | h/v: Fragment | 1-N: Replicate | Tab: Next Panel | q: Quit"
// Abbreviated (width < 80): "↑↓ Enter h/v 1-N Tab q"
// When the results panel has focus, arrows scroll instead of selecting.
func (f *FooterBar) Render(replicationCount int, inResultsPanel bool) string {
	move := "Select"
	if inResultsPanel {
		move = "Scroll"
	}
	if f.terminalWidth < 80 {
		return fmt.Sprintf("↑↓:%s Enter:Run h/v:Frag 1-%d:Repl Tab:Panel q:Quit", move, replicationCount)
	}
	return fmt.Sprintf("↑/↓: %s | Enter: Run | h/v: Fragment | 1-%d: Replicate | Tab: Next Panel | q: Quit",
		move, replicationCount)
}
