package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"maks/internal/core"
)

// jsonDecimal is written as a bare JSON number. On read it also accepts
// strings (with a comma or dot separator) and null, which older clients
// stored straight from form inputs.
type jsonDecimal struct {
	decimal.Decimal
}

func (d jsonDecimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.String()), nil
}

func (d *jsonDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		d.Decimal = decimal.Zero
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		var err error
		if s, err = strconv.Unquote(s); err != nil {
			return fmt.Errorf("decimal: %w", err)
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if s == "" {
			d.Decimal = decimal.Zero
			return nil
		}
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("decimal: %w", err)
	}
	d.Decimal = v
	return nil
}

// jsonInt accepts integers written as numbers or strings.
type jsonInt int

func (n *jsonInt) UnmarshalJSON(b []byte) error {
	var d jsonDecimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*n = jsonInt(d.IntPart())
	return nil
}

func (n jsonInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(n))
}

// entryPayload is the sealed part of an entry document.
type entryPayload struct {
	Date        string      `json:"date"`
	Amount      jsonDecimal `json:"amount"`
	Type        string      `json:"type,omitempty"`
	Description string      `json:"description,omitempty"`
}

// entryEnvelope is the stored form of an encrypted entry. createdAt stays
// readable so listings can be ordered without the key.
type entryEnvelope struct {
	CreatedAt string `json:"createdAt"`
	Content   string `json:"content"`
}

func newEntryPayload(e core.Entry) entryPayload {
	return entryPayload{
		Date:        e.Date.String(),
		Amount:      jsonDecimal{e.Amount.Decimal()},
		Type:        string(e.Kind),
		Description: e.Description,
	}
}

// toEntry converts a decoded payload. Legacy dates may carry a time part.
func (p entryPayload) toEntry(id string, createdAt time.Time) (core.Entry, error) {
	raw := strings.TrimSpace(p.Date)
	if len(raw) > len(core.DateLayout) {
		raw = raw[:len(core.DateLayout)]
	}
	date, err := core.ParseDate(raw)
	if err != nil {
		return core.Entry{}, core.Invalid("date", err)
	}
	amount := core.MoneyFromDecimal(p.Amount.Decimal)
	if err := amount.Validate(); err != nil {
		return core.Entry{}, core.Invalid("amount", err)
	}
	return core.Entry{
		ID:          id,
		Date:        date,
		Amount:      amount,
		Kind:        core.NormalizeKind(p.Type),
		Description: p.Description,
		CreatedAt:   createdAt,
	}, nil
}

// monthPayload is the sealed form of a month record, and also the shape of
// legacy plaintext month documents.
type monthPayload struct {
	Rate       jsonDecimal `json:"rate"`
	Hours      jsonDecimal `json:"hours"`
	Dependents jsonInt     `json:"dependents"`
	HasTaxBook bool        `json:"hasTaxBook"`
}

func newMonthPayload(r core.MonthRecord) monthPayload {
	return monthPayload{
		Rate:       jsonDecimal{r.Rate},
		Hours:      jsonDecimal{r.Hours},
		Dependents: jsonInt(r.Dependents),
		HasTaxBook: r.HasTaxBook,
	}
}

func (p monthPayload) toRecord() core.MonthRecord {
	return core.MonthRecord{
		Rate:       p.Rate.Decimal,
		Hours:      p.Hours.Decimal,
		Dependents: int(p.Dependents),
		HasTaxBook: p.HasTaxBook,
	}
}

// monthEnvelope is the stored form of an encrypted month record.
type monthEnvelope struct {
	Content string `json:"content"`
}
