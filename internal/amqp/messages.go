package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operations carried by a LedgerEvent.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpSetup  = "setup"
)

// Record kinds carried by a LedgerEvent.
const (
	RecordEntry      = "entry"
	RecordMonth      = "month"
	RecordCorrection = "correction"
	RecordSecurity   = "security"
)

// LedgerEvent announces that a user's ledger changed. It names what changed
// and never carries amounts or decrypted content.
type LedgerEvent struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Operation string    `json:"operation"`
	Record    string    `json:"record"`
	RecordID  string    `json:"record_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh identifier.
func NewLedgerEvent(userID, operation, record, recordID string) *LedgerEvent {
	return &LedgerEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		Operation: operation,
		Record:    record,
		RecordID:  recordID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects events missing the fields the audit trail keys on.
func (m *LedgerEvent) Validate() error {
	var missing []string
	if m.EventID == "" {
		missing = append(missing, "event_id")
	}
	if m.UserID == "" {
		missing = append(missing, "user_id")
	}
	if m.Operation == "" {
		missing = append(missing, "operation")
	}
	if m.Record == "" {
		missing = append(missing, "record")
	}
	if len(missing) > 0 {
		return fmt.Errorf("ledger event missing %v", missing)
	}
	if m.Timestamp.IsZero() {
		return errors.New("ledger event has no timestamp")
	}
	return nil
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
