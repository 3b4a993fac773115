// Package tui provides the main application controller for the TUI dashboard.
package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/salahayoub/distdash/pkg/clock"
	"github.com/salahayoub/distdash/pkg/dashboard"
)

// debounceWindow suppresses keyboard repeat of the same key.
const debounceWindow = 200 * time.Millisecond

// Controller is the part of the dashboard the TUI drives.
type Controller interface {
	State() dashboard.State
	Actions() []dashboard.Action
	Subscribe() (<-chan struct{}, func())
	Trigger(ctx context.Context, id string) error
}

// KeyEvent represents a keyboard event.
type KeyEvent struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

// App is the main TUI application controller.
type App struct {
	model  *Model
	view   *View
	ctrl   Controller
	screen tcell.Screen
	sched  clock.Scheduler

	// Channels
	stopChan chan struct{}
	keyChan  chan KeyEvent

	// Synchronization
	mu      sync.RWMutex
	running bool

	// Action calls outlive a key press; they share ctx and are awaited on exit.
	ctx      context.Context
	cancel   context.CancelFunc
	triggers sync.WaitGroup

	// Key debouncing for Windows
	lastKeyTime time.Time
	lastKey     tcell.Key
	lastRune    rune
}

// AppOption configures an App.
type AppOption func(*App)

// WithScreen draws on screen instead of the terminal.
func WithScreen(screen tcell.Screen) AppOption {
	return func(a *App) { a.screen = screen }
}

// WithAppScheduler sets the clock used for animation and progress.
func WithAppScheduler(sched clock.Scheduler) AppOption {
	return func(a *App) { a.sched = sched }
}

// NewApp creates a new TUI application.
func NewApp(ctrl Controller, opts ...AppOption) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		model:    NewModel(),
		view:     NewView(),
		ctrl:     ctrl,
		sched:    clock.Real{},
		stopChan: make(chan struct{}),
		keyChan:  make(chan KeyEvent, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.model.Now = a.sched.Now()
	a.refresh()
	return a
}

// Run starts the TUI application main loop.
// It initializes the terminal, starts event handling, and redraws whenever the
// dashboard changes. Returns an error if initialization fails.
func (a *App) Run() error {
	if a.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to create screen: %w", err)
		}
		a.screen = screen
	}

	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	// Enable mouse support can cause issues on Windows, ensure it's disabled
	a.screen.DisableMouse()
	a.screen.Clear()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	updates, unsubscribe := a.ctrl.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup

	// Event polling goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.pollEvents(ctx)
	}()

	// Animation loop goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.tickLoop(ctx)
	}()

	// Dashboard change goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.watchLoop(ctx, updates)
	}()

	a.refresh()
	a.render()

	shutdown := func() error {
		cancel()
		// PollEvent blocks until the screen is finalized.
		a.cleanup()
		wg.Wait()
		a.cancel()
		a.triggers.Wait()
		return nil
	}

	for {
		select {
		case <-a.stopChan:
			return shutdown()

		case <-sigChan:
			return shutdown()

		case event := <-a.keyChan:
			if a.handleKeyEvent(event) {
				return shutdown()
			}
			a.render()
		}
	}
}

// Stop gracefully stops the application.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		close(a.stopChan)
		a.running = false
	}
}

// cleanup restores the terminal state.
func (a *App) cleanup() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running = false
	if a.screen != nil {
		a.screen.Fini()
	}
}

// pollEvents polls for terminal events and sends them to the key channel.
func (a *App) pollEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}

			switch e := ev.(type) {
			case *tcell.EventKey:
				select {
				case a.keyChan <- KeyEvent{Key: e.Key(), Rune: e.Rune(), Mod: e.Modifiers()}:
				case <-ctx.Done():
					return
				}
			case *tcell.EventResize:
				a.screen.Sync()
				a.render()
			}
		}
	}
}

// tickLoop advances the sync animation and progress bars.
func (a *App) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(a.model.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick()
			a.render()
		}
	}
}

// watchLoop redraws after every dashboard change.
func (a *App) watchLoop(ctx context.Context, updates <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			a.refresh()
			a.render()
		}
	}
}

func (a *App) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model.Frame++
	a.model.Now = a.sched.Now()
}

// refresh copies the latest dashboard snapshot into the model.
func (a *App) refresh() {
	state := a.ctrl.State()
	actions := a.ctrl.Actions()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.model.State = state
	a.model.Actions = actions
	a.model.Now = a.sched.Now()
	a.model.MoveSelection(0)
	a.model.clampScroll()
}

// render draws the current state to the screen.
func (a *App) render() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.screen == nil || !a.running {
		return
	}
	width, height := a.screen.Size()
	lines := a.view.Lines(a.model, width)

	buf := NewBuffer(width, height)
	last := len(lines) - 1
	for y, line := range lines[:last] {
		if y == 0 {
			buf.DrawStringAligned(0, y, width, line.Text, line.Style, AlignCenter)
			continue
		}
		buf.DrawString(0, y, line.Text, line.Style)
	}
	if height > 0 {
		// Pin the footer to the bottom row.
		footer := lines[last]
		buf.FillRect(0, height-1, width, 1, ' ', footer.Style)
		buf.DrawString(0, height-1, footer.Text, footer.Style)
	}

	buf.ApplyToScreen(a.screen, 0, 0)
	a.screen.Show()
}

// IsRunning returns whether the application is currently running.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// GetModel returns the current model (for testing).
func (a *App) GetModel() *Model {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// Wait blocks until every action started from the keyboard has returned.
func (a *App) Wait() {
	a.triggers.Wait()
}

// handleKeyEvent processes a keyboard event and updates the model.
// Returns true if the application should exit.
// Includes debouncing to handle Windows keyboard repeat issues where
// holding a key generates rapid duplicate events.
func (a *App) handleKeyEvent(event KeyEvent) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if now.Sub(a.lastKeyTime) < debounceWindow &&
		a.lastKey == event.Key && a.lastRune == event.Rune {
		return false
	}
	a.lastKeyTime = now
	a.lastKey = event.Key
	a.lastRune = event.Rune

	switch event.Key {
	case tcell.KeyCtrlC:
		return true

	case tcell.KeyTab:
		if event.Mod&tcell.ModShift != 0 {
			a.model.PrevPanel()
		} else {
			a.model.NextPanel()
		}
		return false

	case tcell.KeyBacktab:
		a.model.PrevPanel()
		return false

	case tcell.KeyUp:
		a.move(-1)
		return false

	case tcell.KeyDown:
		a.move(1)
		return false

	case tcell.KeyEscape:
		a.model.ErrorMessage = ""
		return false

	case tcell.KeyEnter:
		if action, ok := a.model.SelectedAction(); ok {
			a.startTriggerLocked(action.ID)
		}
		return false

	case tcell.KeyRune:
		return a.handleRune(event.Rune)
	}

	return false
}

// handleRune processes shortcut keys. The caller holds a.mu.
func (a *App) handleRune(r rune) bool {
	switch r {
	case 'q':
		return true
	case 'k':
		a.move(-1)
	case 'j':
		a.move(1)
	case 'h':
		a.startTriggerLocked(dashboard.ActionHorizontal)
	case 'v':
		a.startTriggerLocked(dashboard.ActionVertical)
	default:
		if id, ok := ReplicationActionForKey(r, a.model.Actions); ok {
			a.startTriggerLocked(id)
		}
	}
	return false
}

// move scrolls the results panel when it has focus and moves the action
// cursor otherwise. The caller holds a.mu.
func (a *App) move(delta int) {
	if a.model.ActivePanel == PanelResults {
		a.model.ScrollResults(delta)
		return
	}
	a.model.MoveSelection(delta)
}

// startTriggerLocked runs action id in the background. The caller holds a.mu.
func (a *App) startTriggerLocked(id string) {
	title := id
	for i, action := range a.model.Actions {
		if action.ID == id {
			title = action.Title
			a.model.Selected = i
			break
		}
	}

	a.model.Busy[id]++
	a.model.ResultsScroll = 0
	a.model.StatusMessage = "Ejecutando: " + title

	a.triggers.Add(1)
	go func() {
		defer a.triggers.Done()
		err := a.ctrl.Trigger(a.ctx, id)

		a.mu.Lock()
		a.model.Busy[id]--
		if a.model.Busy[id] <= 0 {
			delete(a.model.Busy, id)
		}
		if err != nil {
			a.model.ErrorMessage = err.Error()
			a.model.StatusMessage = "Falló: " + title
		} else {
			a.model.ErrorMessage = ""
			a.model.StatusMessage = "Completado: " + title
		}
		a.mu.Unlock()

		a.refresh()
		a.render()
	}()
}
