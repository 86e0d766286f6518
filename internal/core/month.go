package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MonthKey identifies a calendar month. Month is zero-based (0 = January),
// which is also the persisted key format "{year}-{month}".
type MonthKey struct {
	Year  int
	Month int
}

// NewMonthKey builds a key from a calendar month.
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey{Year: year, Month: int(month) - 1}
}

// ParseMonthKey parses the "{year}-{zeroBasedMonth}" document key.
func ParseMonthKey(s string) (MonthKey, error) {
	year, month, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return MonthKey{}, ErrInvalidMonthKey
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return MonthKey{}, ErrInvalidMonthKey
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return MonthKey{}, ErrInvalidMonthKey
	}
	k := MonthKey{Year: y, Month: m}
	if err := k.Validate(); err != nil {
		return MonthKey{}, err
	}
	return k, nil
}

func (k MonthKey) Validate() error {
	if k.Month < 0 || k.Month > 11 || k.Year < 1 {
		return ErrInvalidMonthKey
	}
	return nil
}

func (k MonthKey) String() string {
	return strconv.Itoa(k.Year) + "-" + strconv.Itoa(k.Month)
}

// Compare orders keys chronologically.
func (k MonthKey) Compare(o MonthKey) int {
	switch {
	case k.Year != o.Year:
		if k.Year < o.Year {
			return -1
		}
		return 1
	case k.Month < o.Month:
		return -1
	case k.Month > o.Month:
		return 1
	}
	return 0
}

func (k MonthKey) Before(o MonthKey) bool {
	return k.Compare(o) < 0
}

// Prev returns the preceding month, rolling back across the year boundary.
func (k MonthKey) Prev() MonthKey {
	if k.Month == 0 {
		return MonthKey{Year: k.Year - 1, Month: 11}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// CalendarMonth returns the time.Month the key represents.
func (k MonthKey) CalendarMonth() time.Month {
	return time.Month(k.Month + 1)
}

// MonthKeySet is a deduplicated set of month keys.
type MonthKeySet map[MonthKey]struct{}

func NewMonthKeySet(keys ...MonthKey) MonthKeySet {
	s := make(MonthKeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s MonthKeySet) Add(k MonthKey) {
	s[k] = struct{}{}
}

func (s MonthKeySet) Has(k MonthKey) bool {
	_, ok := s[k]
	return ok
}

// Sorted returns the keys in chronological order.
func (s MonthKeySet) Sorted() []MonthKey {
	out := make([]MonthKey, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// MonthRecord holds the work parameters of one month.
type MonthRecord struct {
	Rate       decimal.Decimal
	Hours      decimal.Decimal
	Dependents int
	HasTaxBook bool
}

func (r MonthRecord) Validate() error {
	if r.Rate.IsNegative() {
		return Invalid("rate", ErrInvalidRate)
	}
	if r.Hours.IsNegative() {
		return Invalid("hours", ErrInvalidHours)
	}
	if r.Dependents < 0 || r.Dependents > MaxDependents {
		return Invalid("dependents", ErrInvalidDependents)
	}
	return nil
}

// Expected is the amount earned for the month: rate × hours.
func (r MonthRecord) Expected() decimal.Decimal {
	return r.Rate.Mul(r.Hours)
}

// MonthPatch is a partial update of a MonthRecord; nil members are preserved.
type MonthPatch struct {
	Rate       *decimal.Decimal
	Hours      *decimal.Decimal
	Dependents *int
	HasTaxBook *bool
}

// Apply merges the patch over r and returns the result.
func (p MonthPatch) Apply(r MonthRecord) MonthRecord {
	if p.Rate != nil {
		r.Rate = *p.Rate
	}
	if p.Hours != nil {
		r.Hours = *p.Hours
	}
	if p.Dependents != nil {
		r.Dependents = *p.Dependents
	}
	if p.HasTaxBook != nil {
		r.HasTaxBook = *p.HasTaxBook
	}
	return r
}

func (p MonthPatch) IsEmpty() bool {
	return p.Rate == nil && p.Hours == nil && p.Dependents == nil && p.HasTaxBook == nil
}

func (p MonthPatch) String() string {
	return fmt.Sprintf("MonthPatch{rate:%t hours:%t dependents:%t taxbook:%t}",
		p.Rate != nil, p.Hours != nil, p.Dependents != nil, p.HasTaxBook != nil)
}
