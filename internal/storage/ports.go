package storage

import (
	"context"
	"errors"
	"time"

	"maks/internal/core"
)

// ErrNotFound is returned when a lookup by identifier matches nothing.
var ErrNotFound = errors.New("not found")

// Document is one stored JSON document. Body is either a legacy plaintext
// object or an envelope carrying ciphertext in "content"; the store does
// not look inside it.
type Document struct {
	ID        string
	CreatedAt time.Time
	Body      []byte
}

// AuditEvent is one ledger change as recorded by the audit worker.
type AuditEvent struct {
	EventID    string
	UserID     string
	Operation  string
	Record     string
	RecordID   string
	OccurredAt time.Time
	ReceivedAt time.Time
}

// Ports implemented by the SQLite and in-memory stores.
type (
	EntryStore interface {
		PutEntry(ctx context.Context, userID string, doc Document) error
		DeleteEntry(ctx context.Context, userID, id string) error
		// ListEntries returns every entry document, newest first.
		ListEntries(ctx context.Context, userID string) ([]Document, error)
	}

	MonthStore interface {
		// GetMonth returns nil when no record exists for key.
		GetMonth(ctx context.Context, userID string, key core.MonthKey) ([]byte, error)
		PutMonth(ctx context.Context, userID string, key core.MonthKey, body []byte) error
		ListMonths(ctx context.Context, userID string) (map[core.MonthKey][]byte, error)
	}

	// CorrectionStore keeps the balance correction as a raw JSON scalar.
	CorrectionStore interface {
		// GetCorrection returns nil when no correction was ever saved.
		GetCorrection(ctx context.Context, userID string) ([]byte, error)
		PutCorrection(ctx context.Context, userID string, raw []byte) error
	}

	SentinelStore interface {
		GetSentinel(ctx context.Context, userID string) ([]byte, error)
		PutSentinel(ctx context.Context, userID string, doc []byte) error
	}

	AuditStore interface {
		// AppendAudit ignores an event whose EventID was already recorded.
		AppendAudit(ctx context.Context, ev AuditEvent) error
		ListAudit(ctx context.Context, userID string, limit int) ([]AuditEvent, error)
	}

	// Store is everything a backend provides.
	Store interface {
		EntryStore
		MonthStore
		CorrectionStore
		SentinelStore
		AuditStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// createdAtLayout keeps a fixed width so text ordering matches time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// FormatCreatedAt renders t in the sortable layout used by the entries table.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}

// ParseCreatedAt accepts the sortable layout and plain RFC 3339.
func ParseCreatedAt(s string) (time.Time, error) {
	if t, err := time.Parse(createdAtLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
