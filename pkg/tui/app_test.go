// Package tui provides unit tests for the App controller.
package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/salahayoub/distdash/pkg/dashboard"
	"github.com/salahayoub/distdash/pkg/nodes"
	"github.com/salahayoub/distdash/pkg/types"
	"github.com/salahayoub/distdash/pkg/view"
)

// mockController is a mock implementation of Controller for testing.
type mockController struct {
	mu        sync.Mutex
	state     dashboard.State
	actions   []dashboard.Action
	errs      map[string]error
	triggered []string
	updates   chan struct{}
}

func newMockController() *mockController {
	return &mockController{
		state: dashboard.State{Nodes: nodes.Seed()},
		actions: []dashboard.Action{
			{ID: dashboard.ActionHorizontal, Title: "Clientes (Fragmentación Horizontal)", Variant: dashboard.VariantFragmentation},
			{ID: dashboard.ActionVertical, Title: "Empleados (Fragmentación Vertical)", Variant: dashboard.VariantFragmentation},
			{ID: "promociones-guayaquil-quito", Title: "Promociones: Guayaquil → Quito", Variant: dashboard.VariantReplication},
			{ID: "promociones-quito-guayaquil", Title: "Promociones: Quito → Guayaquil", Variant: dashboard.VariantReplication},
		},
		errs:    make(map[string]error),
		updates: make(chan struct{}, 1),
	}
}

func (m *mockController) State() dashboard.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockController) Actions() []dashboard.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dashboard.Action(nil), m.actions...)
}

func (m *mockController) Subscribe() (<-chan struct{}, func()) {
	return m.updates, func() {}
}

func (m *mockController) Trigger(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered = append(m.triggered, id)
	return m.errs[id]
}

func (m *mockController) Triggered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.triggered...)
}

// press sends a key with the debounce window reset.
func press(app *App, event KeyEvent) bool {
	app.lastKeyTime = time.Time{}
	return app.handleKeyEvent(event)
}

func TestNewApp(t *testing.T) {
	ctrl := newMockController()
	app := NewApp(ctrl)

	if app == nil {
		t.Fatal("NewApp returned nil")
	}

	if app.model == nil {
		t.Error("Expected model to be initialized")
	}

	if app.view == nil {
		t.Error("Expected view to be initialized")
	}

	if len(app.model.Actions) != 4 {
		t.Errorf("Expected 4 actions loaded, got %d", len(app.model.Actions))
	}

	if len(app.model.State.Nodes) != 3 {
		t.Errorf("Expected 3 nodes loaded, got %d", len(app.model.State.Nodes))
	}

	if app.model.ActivePanel != PanelActions {
		t.Errorf("Expected initial panel to be Actions, got %v", app.model.ActivePanel)
	}
}

// TestApp_HandleKeyEvent_Tab tests that Tab skips the log panel until the
// first operation shows it.
func TestApp_HandleKeyEvent_Tab(t *testing.T) {
	ctrl := newMockController()
	app := NewApp(ctrl)

	if press(app, KeyEvent{Key: tcell.KeyTab}) {
		t.Error("Tab should not cause exit")
	}
	if app.model.ActivePanel != PanelResults {
		t.Errorf("Expected Results after Tab with hidden log, got %v", app.model.ActivePanel)
	}
	if !strings.Contains(app.view.Render(app.model, 100), FocusedBorder.TopLeft) {
		t.Error("Expected a focused border to be drawn")
	}

	press(app, KeyEvent{Key: tcell.KeyTab})
	if app.model.ActivePanel != PanelNodes {
		t.Errorf("Expected Tab to wrap to Nodes, got %v", app.model.ActivePanel)
	}

	ctrl.mu.Lock()
	ctrl.state.LogVisible = true
	ctrl.mu.Unlock()
	app.refresh()

	press(app, KeyEvent{Key: tcell.KeyTab})
	press(app, KeyEvent{Key: tcell.KeyTab})
	if app.model.ActivePanel != PanelLog {
		t.Errorf("Expected Log after Actions once visible, got %v", app.model.ActivePanel)
	}
	press(app, KeyEvent{Key: tcell.KeyTab})
	if app.model.ActivePanel != PanelResults {
		t.Errorf("Expected Results after Log, got %v", app.model.ActivePanel)
	}
}

// TestApp_HandleKeyEvent_ShiftTab tests Shift+Tab key navigation.
func TestApp_HandleKeyEvent_ShiftTab(t *testing.T) {
	app := NewApp(newMockController())

	press(app, KeyEvent{Key: tcell.KeyBacktab})
	if app.model.ActivePanel != PanelNodes {
		t.Errorf("Expected panel to be Nodes after Shift+Tab, got %v", app.model.ActivePanel)
	}

	press(app, KeyEvent{Key: tcell.KeyTab, Mod: tcell.ModShift})
	if app.model.ActivePanel != PanelResults {
		t.Errorf("Expected panel to wrap to Results, got %v", app.model.ActivePanel)
	}

	press(app, KeyEvent{Key: tcell.KeyBacktab})
	if app.model.ActivePanel != PanelActions {
		t.Errorf("Expected Shift+Tab to skip the hidden log, got %v", app.model.ActivePanel)
	}
}

func TestApp_HandleKeyEvent_Quit(t *testing.T) {
	app := NewApp(newMockController())

	if !press(app, KeyEvent{Key: tcell.KeyRune, Rune: 'q'}) {
		t.Error("'q' should cause exit")
	}
	if !press(app, KeyEvent{Key: tcell.KeyCtrlC}) {
		t.Error("Ctrl+C should cause exit")
	}
}

// TestApp_HandleKeyEvent_Debounce tests that a repeated key inside the
// window is dropped.
func TestApp_HandleKeyEvent_Debounce(t *testing.T) {
	app := NewApp(newMockController())

	app.handleKeyEvent(KeyEvent{Key: tcell.KeyDown})
	app.handleKeyEvent(KeyEvent{Key: tcell.KeyDown})

	if app.model.Selected != 1 {
		t.Errorf("Expected repeated key to be ignored, selection %d", app.model.Selected)
	}
}

func TestApp_HandleKeyEvent_Selection(t *testing.T) {
	app := NewApp(newMockController())

	press(app, KeyEvent{Key: tcell.KeyDown})
	press(app, KeyEvent{Key: tcell.KeyRune, Rune: 'j'})
	if app.model.Selected != 2 {
		t.Errorf("Expected selection 2, got %d", app.model.Selected)
	}

	for i := 0; i < 10; i++ {
		press(app, KeyEvent{Key: tcell.KeyDown})
	}
	if app.model.Selected != 3 {
		t.Errorf("Expected selection clamped to 3, got %d", app.model.Selected)
	}

	press(app, KeyEvent{Key: tcell.KeyRune, Rune: 'k'})
	press(app, KeyEvent{Key: tcell.KeyUp})
	if app.model.Selected != 1 {
		t.Errorf("Expected selection 1, got %d", app.model.Selected)
	}
}

func TestApp_HandleKeyEvent_ScrollResults(t *testing.T) {
	ctrl := newMockController()
	ctrl.state.View = view.State{
		Kind:      view.KindEmployees,
		Employees: []types.Employee{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}},
	}
	app := NewApp(ctrl)
	app.model.ActivePanel = PanelResults

	press(app, KeyEvent{Key: tcell.KeyDown})
	press(app, KeyEvent{Key: tcell.KeyRune, Rune: 'j'})
	if app.model.ResultsScroll != 2 {
		t.Errorf("Expected scroll 2, got %d", app.model.ResultsScroll)
	}
	if app.model.Selected != 0 {
		t.Errorf("Expected selection unchanged, got %d", app.model.Selected)
	}

	for i := 0; i < 20; i++ {
		press(app, KeyEvent{Key: tcell.KeyDown})
	}
	if app.model.ResultsScroll != 4 {
		t.Errorf("Expected scroll clamped to last row 4, got %d", app.model.ResultsScroll)
	}
	press(app, KeyEvent{Key: tcell.KeyUp})
	if app.model.ResultsScroll != 3 {
		t.Errorf("Expected one Up to move the view, got %d", app.model.ResultsScroll)
	}

	for i := 0; i < 5; i++ {
		press(app, KeyEvent{Key: tcell.KeyUp})
	}
	if app.model.ResultsScroll != 0 {
		t.Errorf("Expected scroll clamped to 0, got %d", app.model.ResultsScroll)
	}
}

func TestApp_ScrollResults_NoRows(t *testing.T) {
	app := NewApp(newMockController())
	app.model.ActivePanel = PanelResults

	for i := 0; i < 20; i++ {
		press(app, KeyEvent{Key: tcell.KeyDown})
	}
	if app.model.ResultsScroll != 0 {
		t.Errorf("Expected no scroll without rows, got %d", app.model.ResultsScroll)
	}
}

func TestApp_Refresh_ClampsScrollToNewData(t *testing.T) {
	ctrl := newMockController()
	ctrl.state.View = view.State{
		Kind:    view.KindClients,
		Clients: make([]types.Client, 8),
	}
	app := NewApp(ctrl)
	app.model.ScrollResults(7)

	ctrl.mu.Lock()
	ctrl.state.View.Clients = make([]types.Client, 3)
	ctrl.mu.Unlock()
	app.refresh()

	if app.model.ResultsScroll != 2 {
		t.Errorf("Expected scroll clamped to 2 after refresh, got %d", app.model.ResultsScroll)
	}
}

func TestApp_HandleKeyEvent_EnterTriggersSelected(t *testing.T) {
	ctrl := newMockController()
	app := NewApp(ctrl)

	press(app, KeyEvent{Key: tcell.KeyDown})
	press(app, KeyEvent{Key: tcell.KeyEnter})
	app.Wait()

	got := ctrl.Triggered()
	if len(got) != 1 || got[0] != dashboard.ActionVertical {
		t.Fatalf("Expected vertical fragmentation triggered, got %v", got)
	}

	model := app.GetModel()
	if model.IsBusy(dashboard.ActionVertical) {
		t.Error("Expected action to be idle after completion")
	}
	if model.StatusMessage != "Completado: Empleados (Fragmentación Vertical)" {
		t.Errorf("Unexpected status message %q", model.StatusMessage)
	}
}

func TestApp_HandleKeyEvent_Shortcuts(t *testing.T) {
	ctrl := newMockController()
	app := NewApp(ctrl)

	press(app, KeyEvent{Key: tcell.KeyRune, Rune: 'h'})
	press(app, KeyEvent{Key: tcell.KeyRune, Rune: 'v'})
	press(app, KeyEvent{Key: tcell.KeyRune, Rune: '2'})
	press(app, KeyEvent{Key: tcell.KeyRune, Rune: '9'})
	app.Wait()

	got := map[string]bool{}
	for _, id := range ctrl.Triggered() {
		got[id] = true
	}
	want := []string{dashboard.ActionHorizontal, dashboard.ActionVertical, "promociones-quito-guayaquil"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d triggers, got %v", len(want), ctrl.Triggered())
	}
	for _, id := range want {
		if !got[id] {
			t.Errorf("Expected %s to be triggered", id)
		}
	}
}

func TestApp_TriggerError(t *testing.T) {
	ctrl := newMockController()
	ctrl.errs[dashboard.ActionHorizontal] = errors.New("execute request: connection refused")
	app := NewApp(ctrl)

	press(app, KeyEvent{Key: tcell.KeyRune, Rune: 'h'})
	app.Wait()

	model := app.GetModel()
	if model.ErrorMessage != "execute request: connection refused" {
		t.Errorf("Unexpected error message %q", model.ErrorMessage)
	}
	if model.StatusMessage != "Falló: Clientes (Fragmentación Horizontal)" {
		t.Errorf("Unexpected status message %q", model.StatusMessage)
	}

	press(app, KeyEvent{Key: tcell.KeyEscape})
	if app.model.ErrorMessage != "" {
		t.Error("Expected Escape to clear the error message")
	}
}

func TestApp_Stop(t *testing.T) {
	app := NewApp(newMockController())

	app.mu.Lock()
	app.running = true
	app.mu.Unlock()

	app.Stop()

	if app.IsRunning() {
		t.Error("Expected IsRunning to return false after Stop")
	}

	// Calling Stop again should not panic
	app.Stop()
}

func TestApp_Run_SimulationScreen(t *testing.T) {
	ctrl := newMockController()
	screen := tcell.NewSimulationScreen("")
	app := NewApp(ctrl, WithScreen(screen))

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for !app.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("App did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctrl.updates <- struct{}{}
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after 'q'")
	}

	if app.IsRunning() {
		t.Error("Expected app to be stopped")
	}
}
