package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"maks/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable document store. Document bodies are kept
// as opaque JSON text so legacy plaintext and encrypted envelopes coexist.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) PutEntry(ctx context.Context, userID string, doc Document) error {
	err := r.queries.UpsertEntry(ctx, UpsertEntryParams{
		UserID:    userID,
		ID:        doc.ID,
		CreatedAt: FormatCreatedAt(doc.CreatedAt),
		Doc:       string(doc.Body),
	})
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	slog.DebugContext(ctx, "Entry stored", "user_id", userID, "id", doc.ID)
	return nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteEntry(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, ErrNotFound)
	}
	slog.DebugContext(ctx, "Entry deleted", "user_id", userID, "id", id)
	return nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context, userID string) ([]Document, error) {
	rows, err := r.queries.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		createdAt, err := ParseCreatedAt(row.CreatedAt)
		if err != nil {
			slog.WarnContext(ctx, "Entry has unreadable created_at", "id", row.ID, "value", row.CreatedAt)
			createdAt = time.Time{}
		}
		docs = append(docs, Document{ID: row.ID, CreatedAt: createdAt, Body: []byte(row.Doc)})
	}
	return docs, nil
}

func (r *SQLiteRepository) GetMonth(ctx context.Context, userID string, key core.MonthKey) ([]byte, error) {
	doc, err := r.queries.GetMonth(ctx, userID, int64(key.Year), int64(key.Month))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get month %s: %w", key, err)
	}
	return []byte(doc), nil
}

func (r *SQLiteRepository) PutMonth(ctx context.Context, userID string, key core.MonthKey, body []byte) error {
	err := r.queries.UpsertMonth(ctx, UpsertMonthParams{
		UserID: userID,
		Year:   int64(key.Year),
		Month:  int64(key.Month),
		Doc:    string(body),
	})
	if err != nil {
		return fmt.Errorf("upsert month %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) ListMonths(ctx context.Context, userID string) (map[core.MonthKey][]byte, error) {
	rows, err := r.queries.ListMonths(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	out := make(map[core.MonthKey][]byte, len(rows))
	for _, row := range rows {
		out[core.MonthKey{Year: int(row.Year), Month: int(row.Month)}] = []byte(row.Doc)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCorrection(ctx context.Context, userID string) ([]byte, error) {
	v, err := r.queries.GetCorrection(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get correction: %w", err)
	}
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	return []byte(v.String), nil
}

func (r *SQLiteRepository) PutCorrection(ctx context.Context, userID string, raw []byte) error {
	if err := r.queries.UpsertCorrection(ctx, userID, string(raw)); err != nil {
		return fmt.Errorf("upsert correction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSentinel(ctx context.Context, userID string) ([]byte, error) {
	doc, err := r.queries.GetSentinel(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sentinel: %w", err)
	}
	return []byte(doc), nil
}

func (r *SQLiteRepository) PutSentinel(ctx context.Context, userID string, doc []byte) error {
	if err := r.queries.UpsertSentinel(ctx, userID, string(doc)); err != nil {
		return fmt.Errorf("upsert sentinel: %w", err)
	}
	slog.InfoContext(ctx, "Security check stored", "user_id", userID)
	return nil
}

func (r *SQLiteRepository) AppendAudit(ctx context.Context, ev AuditEvent) error {
	err := r.queries.InsertAudit(ctx, AuditRow{
		EventID:    ev.EventID,
		UserID:     ev.UserID,
		Operation:  ev.Operation,
		Record:     ev.Record,
		RecordID:   ev.RecordID,
		OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339Nano),
		ReceivedAt: ev.ReceivedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAudit(ctx context.Context, userID string, limit int) ([]AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.queries.ListAudit(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	out := make([]AuditEvent, 0, len(rows))
	for _, row := range rows {
		occurred, _ := time.Parse(time.RFC3339Nano, row.OccurredAt)
		received, _ := time.Parse(time.RFC3339Nano, row.ReceivedAt)
		out = append(out, AuditEvent{
			EventID:    row.EventID,
			UserID:     row.UserID,
			Operation:  row.Operation,
			Record:     row.Record,
			RecordID:   row.RecordID,
			OccurredAt: occurred,
			ReceivedAt: received,
		})
	}
	return out, nil
}
