package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
)

// Store keeps entries in process memory. It is used by tests and by
// DATA_BACKEND=memory for local runs.
type Store struct {
	mu      sync.Mutex
	items   []core.Entry
	offline bool
	now     func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock returns a store that stamps entries using now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

// SetOffline makes the store report disconnected and refuse requests.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// Create validates and stores the entry.
func (s *Store) Create(_ context.Context, n core.NewEntry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return core.Entry{}, core.ErrStoreUnavailable
	}
	e, err := n.Build(uuid.New(), s.now())
	if err != nil {
		return core.Entry{}, err
	}
	s.items = append(s.items, e)
	return e, nil
}

// ListAll returns a sorted copy of all entries.
func (s *Store) ListAll(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, core.ErrStoreUnavailable
	}
	out := append(make([]core.Entry, 0, len(s.items)), s.items...)
	core.SortByRecency(out)
	return out, nil
}

func (s *Store) State(_ context.Context) core.StoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return core.StateDisconnected
	}
	return core.StateConnected
}

func (s *Store) Close() error { return nil }
