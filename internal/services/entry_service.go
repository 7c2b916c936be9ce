package services

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/store"
)

// Publisher announces stored entries to downstream consumers.
type Publisher interface {
	PublishEntryCreated(ctx context.Context, e core.Entry) error
	Close() error
}

// EntryService orchestrates entry operations across the store and the broker.
type EntryService struct {
	store     store.Store
	publisher Publisher
	logger    *log.StructuredLogger
}

// NewEntryService wires a store and an optional publisher (nil disables publishing).
func NewEntryService(s store.Store, p Publisher) *EntryService {
	return &EntryService{
		store:     s,
		publisher: p,
		logger:    log.NewStructuredLogger(log.WithComponent(log.ComponentEntry)),
	}
}

// Create stores the entry, then publishes it. A publish failure is logged and
// does not fail the call: the entry is already stored.
func (s *EntryService) Create(ctx context.Context, n core.NewEntry) (core.Entry, error) {
	e, err := s.store.Create(ctx, n)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	s.logger.LogEntryCreated(ctx, e.ID.String(), e.Name, e.Price.String())

	if s.publisher != nil {
		if err := s.publisher.PublishEntryCreated(ctx, e); err != nil {
			s.logger.LogError(ctx, "Failed to publish entry created message", err, log.OpPublish,
				log.NewFields().WithEntry(e.ID.String(), e.Name, e.Price.String()))
		}
	}
	return e, nil
}

// List returns every entry newest first.
func (s *EntryService) List(ctx context.Context) ([]core.Entry, error) {
	entries, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	return entries, nil
}

// State reports the store state.
func (s *EntryService) State(ctx context.Context) core.StoreState {
	return s.store.State(ctx)
}

// Close closes both the store and the publisher.
func (s *EntryService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
