// Package tui provides navigation functions for the TUI dashboard.
package tui

import "github.com/salahayoub/distdash/pkg/dashboard"

// cyclePanel returns the panel step positions away from current in order,
// wrapping at both ends. A current panel missing from order counts as the
// position just before the first entry.
func cyclePanel(order []PanelType, current PanelType, step int) PanelType {
	if len(order) == 0 {
		return current
	}
	idx := -1
	for i, p := range order {
		if p == current {
			idx = i
			break
		}
	}
	if idx < 0 && step < 0 {
		idx = 0
	}
	n := len(order)
	return order[((idx+step)%n+n)%n]
}

// ReplicationActionForKey maps the digit keys 1-6 to the replication actions
// in button order.
func ReplicationActionForKey(r rune, actions []dashboard.Action) (string, bool) {
	if r < '1' || r > '9' {
		return "", false
	}
	n := int(r - '1')
	for _, a := range actions {
		if a.Variant != dashboard.VariantReplication {
			continue
		}
		if n == 0 {
			return a.ID, true
		}
		n--
	}
	return "", false
}
