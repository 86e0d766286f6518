package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maks/internal/amqp"
	"maks/internal/log"
	"maks/internal/storage"
)

// EventSource delivers ledger events until ctx is cancelled.
// Implemented by *amqp.Client.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// AuditWorker records every ledger event in the audit trail.
type AuditWorker struct {
	store  storage.AuditStore
	logger *log.Logger
	now    func() time.Time
}

func NewAuditWorker(store storage.AuditStore) *AuditWorker {
	return &AuditWorker{
		store:  store,
		logger: log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentWorker}),
		now:    time.Now,
	}
}

// Run consumes from src until ctx is cancelled.
func (w *AuditWorker) Run(ctx context.Context, src EventSource) error {
	w.logger.InfoContext(ctx, "Audit worker started")
	err := src.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
	w.logger.InfoContext(ctx, "Audit worker stopped", log.FieldError, err)
	return err
}

// HandleLedgerEvent appends ev to the audit trail. Redelivered events are
// recorded once. A returned error requeues the delivery.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if err := ev.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Discarding invalid ledger event", log.FieldError, err)
		return nil
	}

	rec := storage.AuditEvent{
		EventID:    ev.EventID,
		UserID:     ev.UserID,
		Operation:  ev.Operation,
		Record:     ev.Record,
		RecordID:   ev.RecordID,
		OccurredAt: ev.Timestamp.UTC(),
		ReceivedAt: w.now().UTC(),
	}
	if err := w.store.AppendAudit(ctx, rec); err != nil {
		return fmt.Errorf("append audit event %s: %w", ev.EventID, err)
	}

	w.logger.DebugContext(ctx, "Ledger event recorded",
		log.FieldUserID, ev.UserID,
		log.FieldOperation, ev.Operation,
		log.FieldRecord, ev.Record,
		log.FieldRecordID, ev.RecordID)
	return nil
}
