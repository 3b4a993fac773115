// Package oplog implements the dashboard's operation log: an append-only,
// most-recent-first record of user actions, each of which moves from running
// to completed after a fixed delay.
//
// Thread Safety: Log is safe for concurrent use. Completion callbacks and
// Record calls are serialized by an internal mutex.
package oplog

import (
	"sync"
	"time"

	"github.com/salahayoub/distdash/pkg/clock"
	"github.com/salahayoub/distdash/pkg/logging"
)

// CompletionDelay is how long an operation stays running before it is marked
// completed. It does not track any network call.
const CompletionDelay = 2000 * time.Millisecond

// Status is the lifecycle state of an Operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Operation is one logged user action.
type Operation struct {
	ID          uint64    `json:"id"`
	Category    string    `json:"type"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Detail      string    `json:"details,omitempty"`
}

// DisplayTime formats the timestamp at display precision.
func (o Operation) DisplayTime() string {
	return o.Timestamp.Format("15:04:05")
}

// Journal receives a copy of every operation for durable storage.
type Journal interface {
	Append(op Operation) error
	Complete(id uint64, at time.Time) error
}

// Log is the operation log for one dashboard session.
type Log struct {
	mu       sync.Mutex
	sched    clock.Scheduler
	ops      []Operation // most recent first
	nextID   uint64
	visible  bool
	timers   map[uint64]clock.Timer
	closed   bool
	journal  Journal
	onChange func()
	logger   *logging.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithJournal mirrors operations into j.
func WithJournal(j Journal) Option {
	return func(l *Log) { l.journal = j }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// New creates an empty Log driven by sched.
func New(sched clock.Scheduler, opts ...Option) *Log {
	if sched == nil {
		sched = clock.Real{}
	}
	l := &Log{
		sched:  sched,
		timers: make(map[uint64]clock.Timer),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnChange registers fn to be called after every mutation. fn runs outside the
// log's lock and must not block.
func (l *Log) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// Record creates a running operation, prepends it, and schedules its
// completion. It never fails and never blocks on the timer.
func (l *Log) Record(category, description, detail string) uint64 {
	l.mu.Lock()
	l.nextID++
	op := Operation{
		ID:          l.nextID,
		Category:    category,
		Description: description,
		Status:      StatusRunning,
		Timestamp:   l.sched.Now().Truncate(time.Second),
		Detail:      detail,
	}
	l.ops = append([]Operation{op}, l.ops...)
	l.visible = true

	if !l.closed {
		id := op.ID
		l.timers[id] = l.sched.AfterFunc(CompletionDelay, func() { l.complete(id) })
	}
	journal := l.journal
	notify := l.onChange
	l.mu.Unlock()

	if journal != nil {
		if err := journal.Append(op); err != nil {
			l.logger.Warnf("journal append for operation %d failed: %v", op.ID, err)
		}
	}
	if notify != nil {
		notify()
	}
	return op.ID
}

// complete transitions the operation to completed exactly once.
func (l *Log) complete(id uint64) {
	l.mu.Lock()
	delete(l.timers, id)
	if l.closed {
		l.mu.Unlock()
		return
	}
	at := l.sched.Now()
	changed := false
	for i := range l.ops {
		if l.ops[i].ID == id {
			if l.ops[i].Status == StatusRunning {
				l.ops[i].Status = StatusCompleted
				changed = true
			}
			break
		}
	}
	journal := l.journal
	notify := l.onChange
	l.mu.Unlock()

	if !changed {
		return
	}
	if journal != nil {
		if err := journal.Complete(id, at); err != nil {
			l.logger.Warnf("journal completion for operation %d failed: %v", id, err)
		}
	}
	if notify != nil {
		notify()
	}
}

// List returns a snapshot of all operations, most recent first.
func (l *Log) List() []Operation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Operation, len(l.ops))
	copy(out, l.ops)
	return out
}

// Get returns the operation with the given id.
func (l *Log) Get(id uint64) (Operation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, op := range l.ops {
		if op.ID == id {
			return op, true
		}
	}
	return Operation{}, false
}

// Len returns the number of recorded operations.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ops)
}

// Visible reports whether any operation has ever been recorded.
func (l *Log) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// Close cancels every pending completion. Operations recorded afterwards stay
// running forever.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
}
