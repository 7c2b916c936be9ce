package store

import (
	"context"

	"dompet/internal/core"
)

// Ports for the entry persistence adapters.
type (
	// EntryWriter persists a new entry and returns it with id and timestamps set.
	EntryWriter interface {
		Create(ctx context.Context, n core.NewEntry) (core.Entry, error)
	}

	// EntryLister returns every entry, newest datetime first.
	EntryLister interface {
		ListAll(ctx context.Context) ([]core.Entry, error)
	}

	// StateReporter reports connectivity of the backing store.
	StateReporter interface {
		State(ctx context.Context) core.StoreState
	}

	Store interface {
		EntryWriter
		EntryLister
		StateReporter
		Close() error
	}
)
