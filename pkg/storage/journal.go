// Package storage persists the dashboard's operation history.
//
// # Thread Safety Guarantees
//
// JournalStore is safe for concurrent use by multiple goroutines. bbolt
// serializes write transactions and lets read transactions run concurrently
// against a consistent snapshot, so no additional locking is needed around the
// database itself. A small mutex guards the closed flag only.
//
// # Key Layout
//
// Each record lives in the "operations" bucket under a 16-byte key:
// big-endian session start (unix nanoseconds) followed by the big-endian
// operation id. Keys therefore sort by session, then by id, and a reverse
// cursor walk yields newest-first order across sessions.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/salahayoub/distdash/pkg/oplog"
)

var operationsBucket = []byte("operations")

// Error types
var (
	ErrJournalClosed  = errors.New("journal is closed")
	ErrRecordNotFound = errors.New("journal record not found")
)

// Record is one operation as stored on disk.
type Record struct {
	Session     int64        `json:"session"`
	ID          uint64       `json:"id"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Detail      string       `json:"detail,omitempty"`
	Status      oplog.Status `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// JournalStore implements oplog.Journal using bbolt.
type JournalStore struct {
	db      *bbolt.DB
	path    string
	session int64

	mu     sync.RWMutex
	closed bool
}

// OpenJournal opens or creates the journal at path. session identifies the
// current dashboard run; records appended through this store are keyed under
// it.
func OpenJournal(path string, session time.Time) (*JournalStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(operationsBucket); err != nil {
			return fmt.Errorf("failed to create operations bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &JournalStore{
		db:      db,
		path:    path,
		session: session.UnixNano(),
	}, nil
}

// Path returns the database file path.
func (s *JournalStore) Path() string {
	return s.path
}

// Session returns the session key used for new records.
func (s *JournalStore) Session() int64 {
	return s.session
}

// Close releases all database resources. Further calls return
// ErrJournalClosed.
func (s *JournalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func recordKey(session int64, id uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(session))
	binary.BigEndian.PutUint64(buf[8:], id)
	return buf
}

// Append stores op under the current session.
func (s *JournalStore) Append(op oplog.Operation) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrJournalClosed
	}

	rec := Record{
		Session:     s.session,
		ID:          op.ID,
		Category:    op.Category,
		Description: op.Description,
		Detail:      op.Detail,
		Status:      op.Status,
		Timestamp:   op.Timestamp,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %d: %w", op.ID, err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(operationsBucket).Put(recordKey(s.session, op.ID), data)
	})
}

// Complete marks the record for id in the current session as completed.
func (s *JournalStore) Complete(id uint64, at time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrJournalClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(operationsBucket)
		key := recordKey(s.session, id)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("%w: session %d id %d", ErrRecordNotFound, s.session, id)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to decode record %d: %w", id, err)
		}
		rec.Status = oplog.StatusCompleted
		rec.CompletedAt = &at
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %d: %w", id, err)
		}
		return b.Put(key, updated)
	})
}

// Recent returns up to limit records, newest first, across all sessions.
// A limit of zero or less returns every record.
func (s *JournalStore) Recent(limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrJournalClosed
	}

	var out []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(operationsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *JournalStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrJournalClosed
	}

	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(operationsBucket).Stats().KeyN
		return nil
	})
	return n, err
}
