package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"maks/internal/amqp"
	"maks/internal/storage"
	"maks/internal/storage/memory"
)

type failingAudit struct{ storage.AuditStore }

func (failingAudit) AppendAudit(context.Context, storage.AuditEvent) error {
	return errors.New("disk full")
}

// sliceSource replays a fixed list of events and then waits for cancellation.
type sliceSource struct {
	events []*amqp.LedgerEvent
	errs   []error
}

func (s *sliceSource) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, ev := range s.events {
		s.errs = append(s.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleLedgerEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := NewAuditWorker(store)
	received := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return received }

	ev := amqp.NewLedgerEvent("u1", amqp.OpCreate, amqp.RecordEntry, "e1")
	if err := w.HandleLedgerEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleLedgerEvent(ctx, ev); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if err := w.HandleLedgerEvent(ctx, &amqp.LedgerEvent{UserID: "u1"}); err != nil {
		t.Fatalf("invalid event must be dropped, got %v", err)
	}

	got, err := store.ListAudit(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("audit = %+v", got)
	}
	if got[0].EventID != ev.EventID || got[0].RecordID != "e1" || !got[0].ReceivedAt.Equal(received) {
		t.Fatalf("audit event = %+v", got[0])
	}
}

func TestHandleLedgerEventStoreFailureRequeues(t *testing.T) {
	w := NewAuditWorker(failingAudit{})
	err := w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent("u1", amqp.OpDelete, amqp.RecordEntry, "e1"))
	if err == nil {
		t.Fatal("store failure must be returned so the delivery is requeued")
	}
}

func TestRun(t *testing.T) {
	store := memory.New()
	w := NewAuditWorker(store)
	src := &sliceSource{events: []*amqp.LedgerEvent{
		amqp.NewLedgerEvent("u1", amqp.OpSetup, amqp.RecordSecurity, ""),
		amqp.NewLedgerEvent("u1", amqp.OpUpdate, amqp.RecordMonth, "2025-0"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, src) }()

	deadline := time.After(2 * time.Second)
	for {
		got, _ := store.ListAudit(context.Background(), "u1", 10)
		if len(got) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("events not recorded: %+v", got)
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v", err)
	}
}
