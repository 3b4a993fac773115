// Package view tracks which dataset the results area shows and the rows
// backing it.
package view

import (
	"sync"
	"time"

	"github.com/salahayoub/distdash/pkg/types"
)

// Kind identifies the active dataset.
type Kind string

const (
	KindNone       Kind = "none"
	KindEmployees  Kind = "employees"
	KindClients    Kind = "clients"
	KindPromotions Kind = "promotions"
	KindMovies     Kind = "movies"
)

// Paired reports whether the kind renders as a before/after pair.
func (k Kind) Paired() bool {
	return k == KindPromotions || k == KindMovies
}

// Failure is the last action error shown to the user.
type Failure struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// State is a copy of the selector's contents.
type State struct {
	Kind             Kind              `json:"kind"`
	Employees        []types.Employee  `json:"employees,omitempty"`
	Clients          []types.Client    `json:"clients,omitempty"`
	PromotionsBefore []types.Promotion `json:"promotions_before,omitempty"`
	PromotionsAfter  []types.Promotion `json:"promotions_after,omitempty"`
	MoviesBefore     []types.Movie     `json:"movies_before,omitempty"`
	MoviesAfter      []types.Movie     `json:"movies_after,omitempty"`
	BeforeTitle      string            `json:"before_title,omitempty"`
	AfterTitle       string            `json:"after_title,omitempty"`
	PairedVisible    bool              `json:"paired_visible"`
	LastError        *Failure          `json:"last_error,omitempty"`
}

// Renders reports whether the dataset of kind k should be drawn.
func (s State) Renders(k Kind) bool {
	if s.Kind != k {
		return false
	}
	switch k {
	case KindEmployees:
		return len(s.Employees) > 0
	case KindClients:
		return len(s.Clients) > 0
	case KindPromotions, KindMovies:
		return s.PairedVisible
	}
	return false
}

// Selector owns the active view. Every Select call replaces the whole state,
// so at most one dataset is ever populated.
type Selector struct {
	mu       sync.RWMutex
	state    State
	onChange func()
	now      func() time.Time
}

// NewSelector returns a selector showing nothing.
func NewSelector() *Selector {
	return &Selector{state: State{Kind: KindNone}, now: time.Now}
}

// OnChange registers fn to be called after every mutation.
func (s *Selector) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Selector) replace(next State) {
	s.mu.Lock()
	s.state = next
	notify := s.onChange
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// SelectEmployees shows the unified employee rows.
func (s *Selector) SelectEmployees(rows []types.Employee) {
	s.replace(State{Kind: KindEmployees, Employees: cloneSlice(rows)})
}

// SelectClients shows the unified client rows.
func (s *Selector) SelectClients(rows []types.Client) {
	s.replace(State{Kind: KindClients, Clients: cloneSlice(rows)})
}

// SelectPromotions shows a before/after promotions pair.
func (s *Selector) SelectPromotions(before, after []types.Promotion, beforeTitle, afterTitle string) {
	s.replace(State{
		Kind:             KindPromotions,
		PromotionsBefore: cloneSlice(before),
		PromotionsAfter:  cloneSlice(after),
		BeforeTitle:      beforeTitle,
		AfterTitle:       afterTitle,
		PairedVisible:    true,
	})
}

// SelectMovies shows a before/after movie catalog pair.
func (s *Selector) SelectMovies(before, after []types.Movie, beforeTitle, afterTitle string) {
	s.replace(State{
		Kind:          KindMovies,
		MoviesBefore:  cloneSlice(before),
		MoviesAfter:   cloneSlice(after),
		BeforeTitle:   beforeTitle,
		AfterTitle:    afterTitle,
		PairedVisible: true,
	})
}

// Clear returns to the empty view.
func (s *Selector) Clear() {
	s.replace(State{Kind: KindNone})
}

// Fail records err as the last error. Buffers are left as they were.
func (s *Selector) Fail(kind Kind, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.state.LastError = &Failure{Kind: kind, Message: err.Error(), At: s.now()}
	notify := s.onChange
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Selector) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state
	out.Employees = cloneSlice(s.state.Employees)
	out.Clients = cloneSlice(s.state.Clients)
	out.PromotionsBefore = cloneSlice(s.state.PromotionsBefore)
	out.PromotionsAfter = cloneSlice(s.state.PromotionsAfter)
	out.MoviesBefore = cloneSlice(s.state.MoviesBefore)
	out.MoviesAfter = cloneSlice(s.state.MoviesAfter)
	if s.state.LastError != nil {
		f := *s.state.LastError
		out.LastError = &f
	}
	return out
}

// Renders reports whether kind would be drawn right now.
func (s *Selector) Renders(kind Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Renders(kind)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
