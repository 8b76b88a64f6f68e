// Package worker turns delivered ledger events into journal rows.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/log"
)

// Journal is the write side of the audit journal.
type Journal interface {
	Append(ctx context.Context, ev *amqp.LedgerEvent) (bool, error)
}

// Consumer delivers ledger events until its context ends.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, prefetch int, handler amqp.EventHandler) error
}

// Mirror receives every newly journaled transaction, e.g. a spreadsheet.
type Mirror interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (string, error)
}

// JournalWorker appends every delivered ledger event to the journal.
type JournalWorker struct {
	journal  Journal
	mirror   Mirror
	prefetch int
	logger   *log.Logger

	written    int64
	duplicates int64
	mirrored   int64
}

type Option func(*JournalWorker)

// WithMirror copies added transactions to m after they are journaled.
func WithMirror(m Mirror) Option {
	return func(w *JournalWorker) { w.mirror = m }
}

func NewJournalWorker(journal Journal, prefetch int, logger *log.Logger, opts ...Option) *JournalWorker {
	if prefetch <= 0 {
		prefetch = 1
	}
	w := &JournalWorker{
		journal:  journal,
		prefetch: prefetch,
		logger:   log.OrNop(logger).WithComponent(log.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleLedgerEvent processes a single ledger event from AMQP. An error makes
// the consumer requeue the delivery.
func (w *JournalWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.DebugContext(ctx, "Processing ledger event",
		log.FieldEvent, ev.Type,
		"event_id", ev.ID)

	written, err := w.journal.Append(ctx, ev)
	if err != nil {
		return fmt.Errorf("append %s to journal: %w", ev.Type, err)
	}
	if !written {
		w.duplicates++
		return nil
	}
	w.written++

	if w.mirror != nil && ev.Type == amqp.TransactionAdded {
		w.mirrorTransaction(ctx, ev)
	}
	return nil
}

// mirrorTransaction is best effort: the journal row is already written, so a
// redelivery would be a duplicate and never reach the mirror again.
func (w *JournalWorker) mirrorTransaction(ctx context.Context, ev *amqp.LedgerEvent) {
	var tx core.Transaction
	if err := json.Unmarshal(ev.Payload, &tx); err != nil {
		w.logger.WarnContext(ctx, "Transaction event payload unreadable, not mirrored",
			"event_id", ev.ID,
			log.FieldError, err)
		return
	}
	ref, err := w.mirror.AppendTransaction(ctx, tx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror transaction",
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
		return
	}
	w.mirrored++
	w.logger.DebugContext(ctx, "Transaction mirrored", log.FieldTransactionID, tx.ID, "ref", ref)
}

// Run consumes from c until ctx is cancelled.
func (w *JournalWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Journal worker starting", "prefetch", w.prefetch)

	err := c.ConsumeLedgerEvents(ctx, w.prefetch, w.HandleLedgerEvent)

	w.logger.InfoContext(ctx, "Journal worker stopped",
		"written", w.written,
		"duplicates", w.duplicates,
		"mirrored", w.mirrored)

	if ctx.Err() != nil {
		return nil
	}
	return err
}
