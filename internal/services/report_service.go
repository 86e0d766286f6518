package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maks/internal/core"
	"maks/internal/log"
	"maks/internal/report"
	"maks/internal/secure"
	"maks/internal/sheets"
)

// ErrSheetsDisabled is returned when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("spreadsheet export is not configured")

// ReportService builds yearly reports from the decrypted ledger.
type ReportService struct {
	ledger *LedgerService
	writer sheets.ReportWriter
	logger *log.Logger
	now    func() time.Time
}

// NewReportService wires a report builder. writer may be nil.
func NewReportService(ledger *LedgerService, writer sheets.ReportWriter) *ReportService {
	return &ReportService{
		ledger: ledger,
		writer: writer,
		logger: log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentReport}),
		now:    time.Now,
	}
}

func (s *ReportService) Build(ctx context.Context, sess *secure.Session, year int) (report.Report, error) {
	if year < 1 {
		return report.Report{}, core.Invalid("year", core.ErrInvalidMonthKey)
	}
	snap, err := s.ledger.Snapshot(ctx, sess)
	if err != nil {
		return report.Report{}, err
	}
	r := report.Build(snap, year, s.now())
	s.logger.InfoContext(ctx, "Report built",
		log.FieldUserID, sess.UserID(),
		log.FieldYear, year,
		log.FieldCount, len(r.Sheets[0].Rows)-1)
	return r, nil
}

// PushToSheets builds the report for year and writes it to the configured
// spreadsheet.
func (s *ReportService) PushToSheets(ctx context.Context, sess *secure.Session, year int) (string, error) {
	if s.writer == nil {
		return "", ErrSheetsDisabled
	}
	r, err := s.Build(ctx, sess, year)
	if err != nil {
		return "", err
	}
	ref, err := s.writer.WriteReport(ctx, r)
	if err != nil {
		s.logger.ErrorContext(ctx, "Report export failed",
			log.FieldUserID, sess.UserID(),
			log.FieldYear, year,
			log.FieldError, err)
		return "", fmt.Errorf("write report: %w", err)
	}
	return ref, nil
}
