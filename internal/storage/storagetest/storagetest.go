// Package storagetest holds behaviour checks shared by every storage.Store.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"maks/internal/core"
	"maks/internal/storage"
)

// Run exercises s against the storage.Store contract.
func Run(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Entries", func(t *testing.T) {
		base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		docs := []storage.Document{
			{ID: "a", CreatedAt: base, Body: []byte(`{"amount":1}`)},
			{ID: "b", CreatedAt: base.Add(2 * time.Hour), Body: []byte(`{"content":"x"}`)},
			{ID: "c", CreatedAt: base.Add(time.Hour), Body: []byte(`{"amount":3}`)},
		}
		for _, d := range docs {
			if err := s.PutEntry(ctx, "u1", d); err != nil {
				t.Fatalf("PutEntry(%s): %v", d.ID, err)
			}
		}
		if err := s.PutEntry(ctx, "u2", storage.Document{ID: "z", CreatedAt: base, Body: []byte(`{}`)}); err != nil {
			t.Fatal(err)
		}

		got, err := s.ListEntries(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 || got[0].ID != "b" || got[1].ID != "c" || got[2].ID != "a" {
			t.Fatalf("want newest first [b c a], got %v", ids(got))
		}
		if !got[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("created_at = %v", got[0].CreatedAt)
		}
		if string(got[0].Body) != `{"content":"x"}` {
			t.Errorf("body = %s", got[0].Body)
		}

		if err := s.DeleteEntry(ctx, "u1", "c"); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteEntry(ctx, "u1", "c"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("second delete: %v", err)
		}
		if err := s.DeleteEntry(ctx, "u1", "z"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("delete other user's entry: %v", err)
		}
		got, _ = s.ListEntries(ctx, "u1")
		if len(got) != 2 {
			t.Fatalf("after delete: %v", ids(got))
		}
	})

	t.Run("Months", func(t *testing.T) {
		jan := core.MonthKey{Year: 2025, Month: 0}
		dec := core.MonthKey{Year: 2024, Month: 11}

		if doc, err := s.GetMonth(ctx, "u1", jan); err != nil || doc != nil {
			t.Fatalf("absent month: %s %v", doc, err)
		}
		if err := s.PutMonth(ctx, "u1", jan, []byte(`{"rate":10}`)); err != nil {
			t.Fatal(err)
		}
		if err := s.PutMonth(ctx, "u1", jan, []byte(`{"rate":12}`)); err != nil {
			t.Fatal(err)
		}
		if err := s.PutMonth(ctx, "u1", dec, []byte(`{"content":"abc"}`)); err != nil {
			t.Fatal(err)
		}
		doc, err := s.GetMonth(ctx, "u1", jan)
		if err != nil || string(doc) != `{"rate":12}` {
			t.Fatalf("GetMonth = %s %v", doc, err)
		}
		all, err := s.ListMonths(ctx, "u1")
		if err != nil || len(all) != 2 || string(all[dec]) != `{"content":"abc"}` {
			t.Fatalf("ListMonths = %v %v", all, err)
		}
		if other, _ := s.ListMonths(ctx, "u2"); len(other) != 0 {
			t.Fatalf("months leaked across users: %v", other)
		}
	})

	t.Run("Correction", func(t *testing.T) {
		if raw, err := s.GetCorrection(ctx, "u1"); err != nil || raw != nil {
			t.Fatalf("absent correction: %s %v", raw, err)
		}
		if err := s.PutCorrection(ctx, "u1", []byte(`-50`)); err != nil {
			t.Fatal(err)
		}
		if err := s.PutCorrection(ctx, "u1", []byte(`"c2VhbGVk"`)); err != nil {
			t.Fatal(err)
		}
		raw, err := s.GetCorrection(ctx, "u1")
		if err != nil || string(raw) != `"c2VhbGVk"` {
			t.Fatalf("GetCorrection = %s %v", raw, err)
		}
	})

	t.Run("Sentinel", func(t *testing.T) {
		if doc, err := s.GetSentinel(ctx, "u3"); err != nil || doc != nil {
			t.Fatalf("absent sentinel: %s %v", doc, err)
		}
		if err := s.PutSentinel(ctx, "u3", []byte(`{"content":"s"}`)); err != nil {
			t.Fatal(err)
		}
		doc, err := s.GetSentinel(ctx, "u3")
		if err != nil || string(doc) != `{"content":"s"}` {
			t.Fatalf("GetSentinel = %s %v", doc, err)
		}
	})

	t.Run("Audit", func(t *testing.T) {
		at := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
		for i, id := range []string{"e1", "e2", "e2", "e3"} {
			ev := storage.AuditEvent{
				EventID:    id,
				UserID:     "u1",
				Operation:  "create",
				Record:     "entry",
				RecordID:   "r",
				OccurredAt: at.Add(time.Duration(i) * time.Minute),
				ReceivedAt: at.Add(time.Duration(i) * time.Minute),
			}
			if err := s.AppendAudit(ctx, ev); err != nil {
				t.Fatalf("AppendAudit(%s): %v", id, err)
			}
		}
		got, err := s.ListAudit(ctx, "u1", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 || got[0].EventID != "e3" || got[2].EventID != "e1" {
			t.Fatalf("audit = %+v", got)
		}
		if !got[2].OccurredAt.Equal(at) {
			t.Errorf("occurred_at = %v", got[2].OccurredAt)
		}
		limited, _ := s.ListAudit(ctx, "u1", 2)
		if len(limited) != 2 {
			t.Fatalf("limit ignored: %d", len(limited))
		}
	})

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func ids(docs []storage.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
