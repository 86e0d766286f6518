package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMonthKeyParseAndString(t *testing.T) {
	k, err := ParseMonthKey("2025-0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != (MonthKey{Year: 2025, Month: 0}) || k.CalendarMonth() != time.January {
		t.Fatalf("got %+v", k)
	}
	if k.String() != "2025-0" {
		t.Fatalf("String() = %q", k.String())
	}
	for _, in := range []string{"2025", "2025-12", "2025--1", "x-1", "2025-a"} {
		if _, err := ParseMonthKey(in); !errors.Is(err, ErrInvalidMonthKey) {
			t.Fatalf("%q expected ErrInvalidMonthKey, got %v", in, err)
		}
	}
}

func TestMonthKeyOrdering(t *testing.T) {
	dec24 := MonthKey{Year: 2024, Month: 11}
	jan25 := MonthKey{Year: 2025, Month: 0}
	feb25 := MonthKey{Year: 2025, Month: 1}

	if !dec24.Before(jan25) || !jan25.Before(feb25) || feb25.Before(jan25) {
		t.Fatalf("ordering broken")
	}
	if jan25.Compare(jan25) != 0 {
		t.Fatalf("compare equal")
	}
	if jan25.Prev() != dec24 || feb25.Prev() != jan25 {
		t.Fatalf("Prev broken")
	}
}

func TestMonthKeySetSorted(t *testing.T) {
	s := NewMonthKeySet(
		MonthKey{Year: 2025, Month: 3},
		MonthKey{Year: 2024, Month: 11},
		MonthKey{Year: 2025, Month: 0},
		MonthKey{Year: 2025, Month: 3},
	)
	got := s.Sorted()
	want := []MonthKey{{2024, 11}, {2025, 0}, {2025, 3}}
	if len(got) != len(want) {
		t.Fatalf("len=%d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pos %d: got %v want %v", i, got[i], want[i])
		}
	}
	if !s.Has(MonthKey{Year: 2025, Month: 0}) || s.Has(MonthKey{Year: 2030, Month: 0}) {
		t.Fatalf("Has broken")
	}
}

func TestMonthRecordValidate(t *testing.T) {
	good := MonthRecord{Rate: decimal.NewFromInt(10), Hours: decimal.NewFromInt(100), Dependents: 10}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []MonthRecord{
		{Rate: decimal.NewFromInt(-1)},
		{Hours: decimal.NewFromInt(-1)},
		{Dependents: -1},
		{Dependents: 11},
	}
	for i, r := range bads {
		if err := r.Validate(); !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestMonthPatchApplyPreservesUnsetFields(t *testing.T) {
	base := MonthRecord{
		Rate:       decimal.NewFromInt(12),
		Hours:      decimal.NewFromInt(160),
		Dependents: 2,
		HasTaxBook: true,
	}
	hours := decimal.NewFromInt(100)
	got := MonthPatch{Hours: &hours}.Apply(base)

	if !got.Hours.Equal(hours) {
		t.Fatalf("hours not applied: %s", got.Hours)
	}
	if !got.Rate.Equal(base.Rate) || got.Dependents != 2 || !got.HasTaxBook {
		t.Fatalf("unset fields changed: %+v", got)
	}

	no := false
	got = MonthPatch{HasTaxBook: &no}.Apply(got)
	if got.HasTaxBook {
		t.Fatalf("explicit false must be applied")
	}
	if !(MonthPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
}

func TestMonthRecordExpected(t *testing.T) {
	r := MonthRecord{Rate: decimal.RequireFromString("12.5"), Hours: decimal.RequireFromString("7.5")}
	if !r.Expected().Equal(decimal.RequireFromString("93.75")) {
		t.Fatalf("Expected() = %s", r.Expected())
	}
}
