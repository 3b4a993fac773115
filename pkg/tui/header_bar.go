// Package tui provides header bar rendering for the TUI dashboard.
package tui

import (
	"fmt"
	"strings"

	"github.com/salahayoub/distdash/pkg/nodes"
)

// ASCII fallback symbols for node health
const (
	SymbolOnlineASCII  = "[+]"
	SymbolOfflineASCII = "[-]"
	SymbolSyncingASCII = "[~]"
)

// HeaderBar renders the dashboard title and node overview.
type HeaderBar struct {
	unicodeSupport bool
}

// NewHeaderBar creates a header bar renderer.
func NewHeaderBar(unicodeSupport bool) *HeaderBar {
	return &HeaderBar{unicodeSupport: unicodeSupport}
}

// Render outputs the header bar content.
// Format: "Panel de Control de Base de Datos Distribuida | 3/3 nodos en línea | Quito:● Guayaquil:◐ Cuenca:●"
func (h *HeaderBar) Render(list []nodes.Node, frame int) string {
	online := 0
	indicators := make([]string, 0, len(list))
	for _, n := range list {
		if n.Status == nodes.StatusOnline {
			online++
		}
		indicators = append(indicators, fmt.Sprintf("%s:%s", n.Name, h.symbol(n.Status, frame)))
	}

	return fmt.Sprintf("Panel de Control de Base de Datos Distribuida | %d/%d nodos en línea | %s",
		online, len(list), strings.Join(indicators, " "))
}

func (h *HeaderBar) symbol(status nodes.Status, frame int) string {
	if h.unicodeSupport {
		return NodeSymbol(status, frame)
	}
	switch status {
	case nodes.StatusOnline:
		return SymbolOnlineASCII
	case nodes.StatusSyncing:
		return SymbolSyncingASCII
	default:
		return SymbolOfflineASCII
	}
}
