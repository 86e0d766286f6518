package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"maks/internal/core"
)

// Snapshot is the complete decrypted ledger of one user.
type Snapshot struct {
	Entries    []core.Entry
	Records    map[core.MonthKey]core.MonthRecord
	Correction decimal.Decimal
}

// Record returns the stored record for k, if any.
func (s Snapshot) Record(k core.MonthKey) (core.MonthRecord, bool) {
	r, ok := s.Records[k]
	return r, ok
}

// EntriesIn returns the entries dated in k, in snapshot order.
func (s Snapshot) EntriesIn(k core.MonthKey) []core.Entry {
	var out []core.Entry
	for _, e := range s.Entries {
		if e.Date.Key() == k {
			out = append(out, e)
		}
	}
	return out
}

// Dashboard is everything shown for a selected month.
type Dashboard struct {
	Month      MonthSummary
	Cumulative decimal.Decimal
	Correction decimal.Decimal
	Final      decimal.Decimal
}

func (s Snapshot) Dashboard(selected core.MonthKey) Dashboard {
	month := summarize(selected, s.Entries, s.Records)
	cumulative := CumulativeBalance(selected, s.Entries, s.Records)
	return Dashboard{
		Month:      month,
		Cumulative: cumulative,
		Correction: s.Correction,
		Final:      month.Balance.Add(cumulative).Add(s.Correction),
	}
}

// YearSummary is the twelve monthly reconciliations of a calendar year.
type YearSummary struct {
	Year        int
	Months      [12]MonthSummary
	Expected    decimal.Decimal
	Transfer    decimal.Decimal
	Cash        decimal.Decimal
	Received    decimal.Decimal
	Balance     decimal.Decimal
	CarriedOver decimal.Decimal
	Correction  decimal.Decimal
	Final       decimal.Decimal
	GeneratedAt time.Time
}

// Year reconciles every month of year. CarriedOver is the cumulative
// balance before January; Final equals the December dashboard's final
// balance.
func (s Snapshot) Year(year int, now time.Time) YearSummary {
	byMonth := groupByMonth(s.Entries)
	y := YearSummary{
		Year:        year,
		Expected:    decimal.Zero,
		Transfer:    decimal.Zero,
		Cash:        decimal.Zero,
		Received:    decimal.Zero,
		Balance:     decimal.Zero,
		Correction:  s.Correction,
		GeneratedAt: now,
	}
	for m := 0; m < 12; m++ {
		k := core.MonthKey{Year: year, Month: m}
		ms := summarize(k, byMonth[k], s.Records)
		y.Months[m] = ms
		y.Expected = y.Expected.Add(ms.Expected)
		y.Transfer = y.Transfer.Add(ms.TransferTotal)
		y.Cash = y.Cash.Add(ms.CashTotal)
		y.Received = y.Received.Add(ms.Received)
		y.Balance = y.Balance.Add(ms.Balance)
	}
	y.CarriedOver = CumulativeBalance(core.MonthKey{Year: year, Month: 0}, s.Entries, s.Records)
	y.Final = y.CarriedOver.Add(y.Balance).Add(s.Correction)
	return y
}
