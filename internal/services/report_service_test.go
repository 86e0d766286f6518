package services

import (
	"errors"
	"testing"
	"time"

	"maks/internal/report"
	"maks/internal/secure"
	sheetsmem "maks/internal/sheets/memory"
)

func TestReportServicePushToSheets(t *testing.T) {
	f := newFixture(t)
	f.add(t, EntryInput{Date: "2025-01-15", Amount: "700"})
	f.add(t, EntryInput{Date: "2024-12-15", Amount: "10"})

	writer := sheetsmem.New()
	svc := NewReportService(f.svc, writer)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	ref, err := svc.PushToSheets(f.ctx, f.sess, 2025)
	if err != nil || ref != "mem:2025:1" {
		t.Fatalf("PushToSheets = %q, %v", ref, err)
	}
	r, ok := writer.Report(2025)
	if !ok || r.Sheets[0].Name != report.EntriesSheet || len(r.Sheets[0].Rows) != 2 {
		t.Fatalf("pushed report = %+v", r)
	}
	if !r.Summary.Transfer.Equal(dec("700")) {
		t.Fatalf("transfer total = %s", r.Summary.Transfer)
	}
}

func TestReportServiceErrors(t *testing.T) {
	f := newFixture(t)

	if _, err := NewReportService(f.svc, nil).PushToSheets(f.ctx, f.sess, 2025); !errors.Is(err, ErrSheetsDisabled) {
		t.Fatalf("no writer: %v", err)
	}
	svc := NewReportService(f.svc, sheetsmem.New())
	if _, err := svc.Build(f.ctx, f.sess, 0); err == nil {
		t.Fatal("year 0 accepted")
	}
	f.vault.Lock(f.sess)
	if _, err := svc.Build(f.ctx, f.sess, 2025); !errors.Is(err, secure.ErrLocked) {
		t.Fatalf("locked: %v", err)
	}
}
