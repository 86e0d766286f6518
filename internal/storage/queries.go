package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type EntryRow struct {
	ID        string
	CreatedAt string
	Doc       string
}

type MonthRow struct {
	Year  int64
	Month int64
	Doc   string
}

type AuditRow struct {
	EventID    string
	UserID     string
	Operation  string
	Record     string
	RecordID   string
	OccurredAt string
	ReceivedAt string
}

const upsertEntry = `
INSERT INTO entries (user_id, id, created_at, doc)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, id) DO UPDATE SET created_at = excluded.created_at, doc = excluded.doc
`

type UpsertEntryParams struct {
	UserID    string
	ID        string
	CreatedAt string
	Doc       string
}

func (q *Queries) UpsertEntry(ctx context.Context, arg UpsertEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertEntry, arg.UserID, arg.ID, arg.CreatedAt, arg.Doc)
	return err
}

const deleteEntry = `
DELETE FROM entries WHERE user_id = ? AND id = ?
`

func (q *Queries) DeleteEntry(ctx context.Context, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEntry, userID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listEntries = `
SELECT id, created_at, doc FROM entries
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListEntries(ctx context.Context, userID string) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listEntries, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		var i EntryRow
		if err := rows.Scan(&i.ID, &i.CreatedAt, &i.Doc); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getMonth = `
SELECT doc FROM month_records WHERE user_id = ? AND year = ? AND month = ?
`

func (q *Queries) GetMonth(ctx context.Context, userID string, year, month int64) (string, error) {
	row := q.db.QueryRowContext(ctx, getMonth, userID, year, month)
	var doc string
	err := row.Scan(&doc)
	return doc, err
}

const upsertMonth = `
INSERT INTO month_records (user_id, year, month, doc, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id, year, month) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP
`

type UpsertMonthParams struct {
	UserID string
	Year   int64
	Month  int64
	Doc    string
}

func (q *Queries) UpsertMonth(ctx context.Context, arg UpsertMonthParams) error {
	_, err := q.db.ExecContext(ctx, upsertMonth, arg.UserID, arg.Year, arg.Month, arg.Doc)
	return err
}

const listMonths = `
SELECT year, month, doc FROM month_records WHERE user_id = ? ORDER BY year, month
`

func (q *Queries) ListMonths(ctx context.Context, userID string) ([]MonthRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonths, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthRow
	for rows.Next() {
		var i MonthRow
		if err := rows.Scan(&i.Year, &i.Month, &i.Doc); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCorrection = `
SELECT balance_correction FROM user_settings WHERE user_id = ?
`

func (q *Queries) GetCorrection(ctx context.Context, userID string) (sql.NullString, error) {
	row := q.db.QueryRowContext(ctx, getCorrection, userID)
	var v sql.NullString
	err := row.Scan(&v)
	return v, err
}

const upsertCorrection = `
INSERT INTO user_settings (user_id, balance_correction, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (user_id) DO UPDATE SET balance_correction = excluded.balance_correction, updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertCorrection(ctx context.Context, userID, raw string) error {
	_, err := q.db.ExecContext(ctx, upsertCorrection, userID, raw)
	return err
}

const getSentinel = `
SELECT doc FROM security_checks WHERE user_id = ?
`

func (q *Queries) GetSentinel(ctx context.Context, userID string) (string, error) {
	row := q.db.QueryRowContext(ctx, getSentinel, userID)
	var doc string
	err := row.Scan(&doc)
	return doc, err
}

const upsertSentinel = `
INSERT INTO security_checks (user_id, doc) VALUES (?, ?)
ON CONFLICT (user_id) DO UPDATE SET doc = excluded.doc
`

func (q *Queries) UpsertSentinel(ctx context.Context, userID, doc string) error {
	_, err := q.db.ExecContext(ctx, upsertSentinel, userID, doc)
	return err
}

const insertAudit = `
INSERT OR IGNORE INTO audit_events (event_id, user_id, operation, record, record_id, occurred_at, received_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertAudit(ctx context.Context, arg AuditRow) error {
	_, err := q.db.ExecContext(ctx, insertAudit,
		arg.EventID, arg.UserID, arg.Operation, arg.Record, arg.RecordID, arg.OccurredAt, arg.ReceivedAt)
	return err
}

const listAudit = `
SELECT event_id, user_id, operation, record, record_id, occurred_at, received_at
FROM audit_events
WHERE user_id = ?
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListAudit(ctx context.Context, userID string, limit int64) ([]AuditRow, error) {
	rows, err := q.db.QueryContext(ctx, listAudit, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditRow
	for rows.Next() {
		var i AuditRow
		if err := rows.Scan(&i.EventID, &i.UserID, &i.Operation, &i.Record, &i.RecordID, &i.OccurredAt, &i.ReceivedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
