package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/sheets"
)

// Consumer delivers entry-created messages to a handler until ctx ends.
type Consumer interface {
	ConsumeEntryCreated(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker copies every created entry into the mirror spreadsheet.
type MirrorWorker struct {
	sheet         sheets.EntryAppender
	logger        *log.Logger
	statsInterval time.Duration

	mirrored atomic.Int64
	failed   atomic.Int64
}

func NewMirrorWorker(sheet sheets.EntryAppender) *MirrorWorker {
	return &MirrorWorker{
		sheet:         sheet,
		logger:        log.WithComponent(log.ComponentWorker),
		statsInterval: time.Minute,
	}
}

// EntryFromMessage rebuilds the entry carried by a message.
func EntryFromMessage(msg *amqp.EntryCreatedMessage) (core.Entry, error) {
	price, err := decimal.NewFromString(msg.Price.String())
	if err != nil {
		return core.Entry{}, fmt.Errorf("price %q: %w", msg.Price, err)
	}
	return core.Entry{
		ID:          msg.ID,
		Name:        msg.Name,
		Description: msg.Description,
		Datetime:    msg.Datetime,
		Price:       price,
		CreatedAt:   msg.Timestamp,
		UpdatedAt:   msg.Timestamp,
	}, nil
}

// HandleEntryCreated appends the entry to the sheet. An error makes the
// consumer nack the message; it is not retried.
func (w *MirrorWorker) HandleEntryCreated(ctx context.Context, msg *amqp.EntryCreatedMessage) error {
	e, err := EntryFromMessage(msg)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("decode entry: %w", err)
	}

	ref, err := w.sheet.AppendEntry(ctx, e)
	if err != nil {
		w.failed.Add(1)
		w.logger.ErrorContext(ctx, "Failed to mirror entry",
			log.FieldEntryID, e.ID.String(),
			log.FieldOperation, log.OpAppend,
			log.FieldError, err.Error())
		return fmt.Errorf("append entry to sheet: %w", err)
	}

	w.mirrored.Add(1)
	w.logger.InfoContext(ctx, "Entry mirrored",
		log.FieldEntryID, e.ID.String(),
		log.FieldSheetsRange, ref)
	return nil
}

// Stats returns how many entries were mirrored and how many failed.
func (w *MirrorWorker) Stats() (mirrored, failed int64) {
	return w.mirrored.Load(), w.failed.Load()
}

// Run consumes until ctx is cancelled or the consumer fails. Cancellation is
// a clean stop and returns nil.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := consumer.ConsumeEntryCreated(gctx, w.HandleEntryCreated)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err == nil {
			return errors.New("consumer stopped")
		}
		return fmt.Errorf("consume: %w", err)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				mirrored, failed := w.Stats()
				w.logger.Info("Mirror worker stats", "mirrored", mirrored, "failed", failed)
			}
		}
	})

	return g.Wait()
}
