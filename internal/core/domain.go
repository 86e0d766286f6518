package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindTransfer Kind = "TRANSFER"
	KindCash     Kind = "CASH"
)

const (
	// MaxDependents bounds the dependents accepted on a month record.
	MaxDependents = 10
	// MaxDescriptionLength bounds free-text entry descriptions.
	MaxDescriptionLength = 200
)

// DateLayout is the calendar-day format used on the wire and in storage.
const DateLayout = "2006-01-02"

type (
	// Kind tells how an income entry was received.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Entry is a single received payment. Entries are immutable once stored.
	Entry struct {
		ID          string
		Date        Date
		Amount      Money
		Kind        Kind
		Description string
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("invalid entry kind")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrInvalidDependents  = fmt.Errorf("dependents must be between 0 and %d", MaxDependents)
	ErrInvalidRate        = errors.New("rate cannot be negative")
	ErrInvalidHours       = errors.New("hours cannot be negative")
	ErrInvalidMonthKey    = errors.New("invalid month key")
	ErrSecretTooShort     = errors.New("secret too short")
	ErrSecretMismatch     = errors.New("secret confirmation does not match")
	ErrInvalidCorrection  = errors.New("invalid balance correction")
	ErrUnknownInputMode   = errors.New("unknown input mode")
)

// ValidationError reports malformed input rejected before any write.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid wraps err as a ValidationError on field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NormalizeKind maps stored kinds onto the two known values.
// Anything that is not CASH, including a missing kind on legacy records, is a transfer.
func NormalizeKind(s string) Kind {
	if strings.EqualFold(strings.TrimSpace(s), string(KindCash)) {
		return KindCash
	}
	return KindTransfer
}

func (k Kind) Validate() error {
	switch k {
	case KindTransfer, KindCash:
		return nil
	}
	return ErrInvalidKind
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Key returns the month bucket the date falls into.
func (d Date) Key() MonthKey {
	return NewMonthKey(d.Year(), d.Month())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if err := e.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if err := e.Kind.Validate(); err != nil {
		return Invalid("kind", err)
	}
	if len(e.Description) > MaxDescriptionLength {
		return Invalid("description", ErrDescriptionTooLong)
	}
	return nil
}

// ValidateSecret checks a new PIN and its confirmation before setup.
func ValidateSecret(secret, confirm string, minLength int) error {
	if len(secret) < minLength {
		return Invalid("secret", ErrSecretTooShort)
	}
	if secret != confirm {
		return Invalid("confirm", ErrSecretMismatch)
	}
	return nil
}
