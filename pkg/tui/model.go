package tui

import (
	"time"

	"github.com/salahayoub/distdash/pkg/dashboard"
	"github.com/salahayoub/distdash/pkg/view"
)

// PanelType identifies which panel has focus.
type PanelType int

const (
	PanelNodes PanelType = iota
	PanelActions
	PanelLog
	PanelResults
)

// String returns a human-readable representation of the PanelType.
func (p PanelType) String() string {
	switch p {
	case PanelNodes:
		return "Nodos"
	case PanelActions:
		return "Acciones"
	case PanelLog:
		return "Registro de Operaciones"
	case PanelResults:
		return "Resultados"
	default:
		return "Unknown"
	}
}

// Model holds the application state for the TUI.
type Model struct {
	// Dashboard snapshot
	State   dashboard.State
	Actions []dashboard.Action

	// UI state
	ActivePanel   PanelType
	Selected      int // index into Actions
	ResultsScroll int
	ErrorMessage  string
	StatusMessage string

	// In-flight action ids -> number of running calls
	Busy map[string]int

	// Animation
	Frame int
	Now   time.Time

	// Configuration
	TickInterval time.Duration
}

// NewModel creates a new Model with default values.
func NewModel() *Model {
	return &Model{
		ActivePanel:  PanelActions,
		Busy:         make(map[string]int),
		TickInterval: 500 * time.Millisecond,
	}
}

// NextPanel moves focus to the next visible panel, wrapping around.
// The log panel is skipped until it is shown.
func (m *Model) NextPanel() {
	m.ActivePanel = cyclePanel(visiblePanels(m), m.ActivePanel, 1)
}

// PrevPanel moves focus to the previous visible panel, wrapping around.
func (m *Model) PrevPanel() {
	m.ActivePanel = cyclePanel(visiblePanels(m), m.ActivePanel, -1)
}

// MoveSelection moves the action cursor by delta, clamped to the list.
func (m *Model) MoveSelection(delta int) {
	if len(m.Actions) == 0 {
		m.Selected = 0
		return
	}
	m.Selected += delta
	if m.Selected < 0 {
		m.Selected = 0
	}
	if m.Selected >= len(m.Actions) {
		m.Selected = len(m.Actions) - 1
	}
}

// SelectedAction returns the action under the cursor.
func (m *Model) SelectedAction() (dashboard.Action, bool) {
	if m.Selected < 0 || m.Selected >= len(m.Actions) {
		return dashboard.Action{}, false
	}
	return m.Actions[m.Selected], true
}

// ScrollResults moves the results viewport by delta rows, clamped so the
// last row of the longest table stays on screen.
func (m *Model) ScrollResults(delta int) {
	m.ResultsScroll += delta
	m.clampScroll()
}

func (m *Model) clampScroll() {
	limit := m.resultRows() - 1
	if m.ResultsScroll > limit {
		m.ResultsScroll = limit
	}
	if m.ResultsScroll < 0 {
		m.ResultsScroll = 0
	}
}

// resultRows is the row count of the longest table the results panel draws.
func (m *Model) resultRows() int {
	st := m.State.View
	switch {
	case st.Renders(view.KindEmployees):
		return len(st.Employees)
	case st.Renders(view.KindClients):
		return len(st.Clients)
	case st.Renders(view.KindPromotions):
		return max(len(st.PromotionsBefore), len(st.PromotionsAfter))
	case st.Renders(view.KindMovies):
		return max(len(st.MoviesBefore), len(st.MoviesAfter))
	}
	return 0
}

// IsBusy reports whether any call for action id is in flight.
func (m *Model) IsBusy(id string) bool {
	return m.Busy[id] > 0
}
