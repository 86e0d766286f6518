package http

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"maks/internal/balance"
	"maks/internal/core"
	"maks/internal/services"
)

// numberText accepts a JSON string or number and keeps its text, so
// "700,50" and 700.5 both reach the domain parsers unchanged.
type numberText string

func (n *numberText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = numberText(num.String())
	return nil
}

// decimalField parses an optional request number. Comma decimal
// separators are accepted.
func decimalField(field string, n *numberText) (*decimal.Decimal, error) {
	if n == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(string(*n)), ",", "."))
	if err != nil {
		return nil, core.Invalid(field, err)
	}
	return &d, nil
}

func euros(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type entryView struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

func newEntryView(e core.Entry) entryView {
	v := entryView{
		ID:          e.ID,
		Date:        e.Date.String(),
		Amount:      euros(e.Amount.Decimal()),
		Kind:        string(e.Kind),
		Description: e.Description,
	}
	if !e.CreatedAt.IsZero() {
		v.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

type addedEntryView struct {
	Entry      entryView `json:"entry"`
	NetPreview *string   `json:"netPreview,omitempty"`
}

func newAddedEntryView(a services.AddedEntry) addedEntryView {
	v := addedEntryView{Entry: newEntryView(a.Entry)}
	if a.NetPreview != nil {
		s := euros(*a.NetPreview)
		v.NetPreview = &s
	}
	return v
}

type monthView struct {
	Key           string  `json:"key"`
	Year          int     `json:"year"`
	Month         int     `json:"month"`
	Rate          string  `json:"rate"`
	Hours         string  `json:"hours"`
	Dependents    int     `json:"dependents"`
	HasTaxBook    bool    `json:"hasTaxBook"`
	Expected      string  `json:"expected"`
	Stored        bool    `json:"stored"`
	InheritedFrom *string `json:"inheritedFrom,omitempty"`
}

func newMonthView(k core.MonthKey, r core.MonthRecord, stored bool, inheritedFrom *core.MonthKey) monthView {
	v := monthView{
		Key:        k.String(),
		Year:       k.Year,
		Month:      k.Month,
		Rate:       r.Rate.String(),
		Hours:      r.Hours.String(),
		Dependents: r.Dependents,
		HasTaxBook: r.HasTaxBook,
		Expected:   euros(r.Expected()),
		Stored:     stored,
	}
	if inheritedFrom != nil {
		s := inheritedFrom.String()
		v.InheritedFrom = &s
	}
	return v
}

func newEffectiveMonthView(k core.MonthKey, e services.EffectiveRecord) monthView {
	return newMonthView(k, e.Record, e.Stored, e.InheritedFrom)
}

type monthSummaryView struct {
	Key        string `json:"key"`
	HasRecord  bool   `json:"hasRecord"`
	EntryCount int    `json:"entryCount"`
	Expected   string `json:"expected"`
	Transfer   string `json:"transfer"`
	Cash       string `json:"cash"`
	Received   string `json:"received"`
	Balance    string `json:"balance"`
}

func newMonthSummaryView(m balance.MonthSummary) monthSummaryView {
	return monthSummaryView{
		Key:        m.Key.String(),
		HasRecord:  m.HasRecord,
		EntryCount: m.EntryCount,
		Expected:   euros(m.Expected),
		Transfer:   euros(m.TransferTotal),
		Cash:       euros(m.CashTotal),
		Received:   euros(m.Received),
		Balance:    euros(m.Balance),
	}
}

type dashboardView struct {
	Month      monthSummaryView `json:"month"`
	Cumulative string           `json:"cumulative"`
	Correction string           `json:"correction"`
	Final      string           `json:"final"`
}

func newDashboardView(d balance.Dashboard) dashboardView {
	return dashboardView{
		Month:      newMonthSummaryView(d.Month),
		Cumulative: euros(d.Cumulative),
		Correction: euros(d.Correction),
		Final:      euros(d.Final),
	}
}

type yearView struct {
	Year        int                `json:"year"`
	Months      []monthSummaryView `json:"months"`
	Expected    string             `json:"expected"`
	Transfer    string             `json:"transfer"`
	Cash        string             `json:"cash"`
	Received    string             `json:"received"`
	Balance     string             `json:"balance"`
	CarriedOver string             `json:"carriedOver"`
	Correction  string             `json:"correction"`
	Final       string             `json:"final"`
}

func newYearView(y balance.YearSummary) yearView {
	v := yearView{
		Year:        y.Year,
		Months:      make([]monthSummaryView, 0, len(y.Months)),
		Expected:    euros(y.Expected),
		Transfer:    euros(y.Transfer),
		Cash:        euros(y.Cash),
		Received:    euros(y.Received),
		Balance:     euros(y.Balance),
		CarriedOver: euros(y.CarriedOver),
		Correction:  euros(y.Correction),
		Final:       euros(y.Final),
	}
	for _, m := range y.Months {
		v.Months = append(v.Months, newMonthSummaryView(m))
	}
	return v
}

type correctionView struct {
	Correction string `json:"correction"`
}
