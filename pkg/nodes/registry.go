// Package nodes holds the fixed registry of display nodes shown on the
// dashboard and the client-side syncing simulation applied to them.
package nodes

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/salahayoub/distdash/pkg/clock"
)

// SyncDelay is how long a replication target stays in the syncing state.
const SyncDelay = 3000 * time.Millisecond

// ErrUnknownNode is returned when a name matches no registered node.
var ErrUnknownNode = errors.New("unknown node")

// Status is a node's display status.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusSyncing Status = "syncing"
)

// Node is the display record for one remote database instance.
type Node struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	DBMS    string `json:"dbms"`
	Records int    `json:"records"`
}

// Well-known node names.
const (
	Quito     = "Quito"
	Guayaquil = "Guayaquil"
	Cuenca    = "Cuenca"
)

// Seed returns the three nodes every session starts with.
func Seed() []Node {
	return []Node{
		{ID: "quito", Name: Quito, Status: StatusOnline, DBMS: "PostgreSQL 17", Records: 1250},
		{ID: "guayaquil", Name: Guayaquil, Status: StatusOnline, DBMS: "PostgreSQL 17", Records: 1250},
		{ID: "cuenca", Name: Cuenca, Status: StatusOnline, DBMS: "Oracle 21c", Records: 1250},
	}
}

// Registry is the fixed set of nodes for a session. Nodes are never added or
// removed; only Status and Records change.
type Registry struct {
	mu       sync.Mutex
	sched    clock.Scheduler
	nodes    []Node
	timers   map[string]clock.Timer // destination node ID -> pending sync timer
	closed   bool
	onChange func()
}

// NewRegistry creates a registry seeded with Seed().
func NewRegistry(sched clock.Scheduler) *Registry {
	if sched == nil {
		sched = clock.Real{}
	}
	return &Registry{
		sched:  sched,
		nodes:  Seed(),
		timers: make(map[string]clock.Timer),
	}
}

// OnChange registers fn to be called after every status change.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// List returns a snapshot of all nodes in seed order.
func (r *Registry) List() []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Get looks a node up by display name or id, case-insensitively.
func (r *Registry) Get(name string) (Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.indexLocked(name)
	if idx < 0 {
		return Node{}, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return r.nodes[idx], nil
}

func (r *Registry) indexLocked(name string) int {
	for i, n := range r.nodes {
		if strings.EqualFold(n.Name, name) || strings.EqualFold(n.ID, name) {
			return i
		}
	}
	return -1
}

// SetStatus overrides a node's status.
func (r *Registry) SetStatus(name string, status Status) error {
	r.mu.Lock()
	idx := r.indexLocked(name)
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	changed := r.nodes[idx].Status != status
	r.nodes[idx].Status = status
	notify := r.onChange
	r.mu.Unlock()

	if changed && notify != nil {
		notify()
	}
	return nil
}

// BeginSync marks destination as syncing and schedules its return to online
// after SyncDelay, copying the origin's record count at that moment. A second
// sync to the same destination reschedules the pending one.
func (r *Registry) BeginSync(origin, destination string) error {
	r.mu.Lock()
	src := r.indexLocked(origin)
	dst := r.indexLocked(destination)
	if src < 0 || dst < 0 {
		r.mu.Unlock()
		missing := origin
		if src >= 0 {
			missing = destination
		}
		return fmt.Errorf("%w: %s", ErrUnknownNode, missing)
	}

	r.nodes[dst].Status = StatusSyncing
	dstID := r.nodes[dst].ID
	srcID := r.nodes[src].ID
	if !r.closed {
		if t, ok := r.timers[dstID]; ok {
			t.Stop()
		}
		r.timers[dstID] = r.sched.AfterFunc(SyncDelay, func() { r.finishSync(srcID, dstID) })
	}
	notify := r.onChange
	r.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

func (r *Registry) finishSync(srcID, dstID string) {
	r.mu.Lock()
	delete(r.timers, dstID)
	if r.closed {
		r.mu.Unlock()
		return
	}
	src := r.indexLocked(srcID)
	dst := r.indexLocked(dstID)
	r.nodes[dst].Status = StatusOnline
	r.nodes[dst].Records = r.nodes[src].Records
	notify := r.onChange
	r.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Close cancels pending sync completions.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
