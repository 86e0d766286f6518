// Package balance reconciles expected earnings against received payments
// month by month and carries the difference forward.
//
// Every function recomputes from the full set of entries and month records
// it is given. Nothing is cached between calls.
package balance

import (
	"github.com/shopspring/decimal"

	"maks/internal/core"
)

// MonthSummary is the reconciliation of a single month.
type MonthSummary struct {
	Key           core.MonthKey
	Record        core.MonthRecord
	HasRecord     bool
	EntryCount    int
	Expected      decimal.Decimal
	TransferTotal decimal.Decimal
	CashTotal     decimal.Decimal
	Received      decimal.Decimal
	Balance       decimal.Decimal
}

// SummarizeMonth reconciles the entries dated in key against the month's
// record. Entries from other months are ignored. A nil record means nothing
// was expected.
func SummarizeMonth(key core.MonthKey, entries []core.Entry, record *core.MonthRecord) MonthSummary {
	s := MonthSummary{
		Key:           key,
		Expected:      decimal.Zero,
		TransferTotal: decimal.Zero,
		CashTotal:     decimal.Zero,
	}
	if record != nil {
		s.Record = *record
		s.HasRecord = true
		s.Expected = record.Expected()
	}
	for _, e := range entries {
		if e.Date.Key() != key {
			continue
		}
		s.EntryCount++
		if e.Kind == core.KindCash {
			s.CashTotal = s.CashTotal.Add(e.Amount.Decimal())
		} else {
			s.TransferTotal = s.TransferTotal.Add(e.Amount.Decimal())
		}
	}
	s.Received = s.TransferTotal.Add(s.CashTotal)
	s.Balance = s.Expected.Sub(s.Received)
	return s
}

// MonthKeys is the union of months that have a record and months that
// have at least one entry.
func MonthKeys(entries []core.Entry, records map[core.MonthKey]core.MonthRecord) core.MonthKeySet {
	keys := make(core.MonthKeySet, len(records))
	for k := range records {
		keys.Add(k)
	}
	for _, e := range entries {
		keys.Add(e.Date.Key())
	}
	return keys
}

// CumulativeBalance sums the balances of every known month strictly before
// selected. The result does not depend on the order of entries.
func CumulativeBalance(selected core.MonthKey, entries []core.Entry, records map[core.MonthKey]core.MonthRecord) decimal.Decimal {
	byMonth := groupByMonth(entries)
	total := decimal.Zero
	for _, k := range MonthKeys(entries, records).Sorted() {
		if !k.Before(selected) {
			break
		}
		total = total.Add(summarize(k, byMonth[k], records).Balance)
	}
	return total
}

// FinalBalance is the selected month's balance plus everything carried over
// plus the manual correction.
func FinalBalance(selected core.MonthKey, entries []core.Entry, records map[core.MonthKey]core.MonthRecord, correction decimal.Decimal) decimal.Decimal {
	month := summarize(selected, entries, records)
	return month.Balance.Add(CumulativeBalance(selected, entries, records)).Add(correction)
}

func summarize(k core.MonthKey, entries []core.Entry, records map[core.MonthKey]core.MonthRecord) MonthSummary {
	if r, ok := records[k]; ok {
		return SummarizeMonth(k, entries, &r)
	}
	return SummarizeMonth(k, entries, nil)
}

func groupByMonth(entries []core.Entry) map[core.MonthKey][]core.Entry {
	out := make(map[core.MonthKey][]core.Entry)
	for _, e := range entries {
		k := e.Date.Key()
		out[k] = append(out[k], e)
	}
	return out
}
