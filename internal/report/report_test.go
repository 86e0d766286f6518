package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"maks/internal/balance"
	"maks/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSnapshot() balance.Snapshot {
	entry := func(id string, y int, m time.Month, d int, cents int64, k core.Kind, desc string) core.Entry {
		return core.Entry{ID: id, Date: core.NewDate(y, m, d), Amount: core.Money{Cents: cents}, Kind: k, Description: desc}
	}
	return balance.Snapshot{
		Entries: []core.Entry{
			entry("4", 2025, time.February, 15, 40000, core.KindTransfer, "Alga"),
			entry("3", 2025, time.January, 20, 10000, core.KindCash, "Alga (Uz rokas)"),
			entry("2", 2025, time.January, 10, 70000, core.KindTransfer, "Alga"),
			entry("1", 2024, time.December, 10, 20000, core.KindTransfer, "Alga"),
		},
		Records: map[core.MonthKey]core.MonthRecord{
			{Year: 2024, Month: 11}: {Rate: dec("10"), Hours: dec("30")},
			{Year: 2025, Month: 0}:  {Rate: dec("10"), Hours: dec("100")},
			{Year: 2025, Month: 1}:  {Rate: dec("10"), Hours: dec("50")},
		},
		Correction: dec("-50"),
	}
}

func TestBuild(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	r := Build(testSnapshot(), 2025, now)

	if r.Filename() != "Maks_Parskats_2025_2025-03-04.xlsx" {
		t.Errorf("filename = %s", r.Filename())
	}
	if len(r.Sheets) != 2 || r.Sheets[0].Name != EntriesSheet || r.Sheets[1].Name != SummarySheet {
		t.Fatalf("sheets = %+v", r.Sheets)
	}

	entries := r.Sheets[0].Rows
	if len(entries) != 4 {
		t.Fatalf("entries rows = %d, want header + 3 entries of 2025", len(entries))
	}
	if entries[1][0] != "10.01.2025." || entries[1][1] != 700.0 || entries[1][2] != "Pārskaitījums" {
		t.Errorf("first entry row = %v", entries[1])
	}
	if entries[2][2] != "Uz rokas" {
		t.Errorf("cash label = %v", entries[2][2])
	}

	y := r.Summary
	checks := map[string][2]decimal.Decimal{
		"expected":     {y.Expected, dec("1500")},
		"transfer":     {y.Transfer, dec("1100")},
		"cash":         {y.Cash, dec("100")},
		"balance":      {y.Balance, dec("300")},
		"carried over": {y.CarriedOver, dec("100")},
		"final":        {y.Final, dec("350")},
	}
	for name, c := range checks {
		if !c[0].Equal(c[1]) {
			t.Errorf("%s = %s, want %s", name, c[0], c[1])
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	now := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, Build(testSnapshot(), 2025, now)); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != EntriesSheet || got[1] != SummarySheet {
		t.Fatalf("sheet list = %v", got)
	}

	rows, err := f.GetRows(EntriesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 || rows[0][0] != "Datums" || rows[3][0] != "15.02.2025." || rows[3][1] != "400" {
		t.Fatalf("entries = %v", rows)
	}

	rows, err = f.GetRows(SummarySheet)
	if err != nil {
		t.Fatal(err)
	}
	if rows[1][0] != "Janvāris" || rows[1][3] != "1000" || rows[12][0] != "Decembris" {
		t.Errorf("month rows = %v / %v", rows[1], rows[12])
	}
	labels := map[string]string{}
	for _, row := range rows {
		if len(row) >= 2 {
			labels[row[0]] = row[1]
		}
	}
	want := map[string]string{
		"Pienākas (Aprēķināts)": "1500",
		"Kopā saņemts":          "1200",
		"Uzkrātais atlikums":    "100",
		"Korekcija":             "-50",
		"Gala bilance (Iekšā)":  "350",
		"Izveidots":             "2025-03-04 09:30",
	}
	for label, v := range want {
		if labels[label] != v {
			t.Errorf("%s = %q, want %q", label, labels[label], v)
		}
	}
}

func TestMonthName(t *testing.T) {
	if MonthName(0) != "Janvāris" || MonthName(11) != "Decembris" || MonthName(12) != "" {
		t.Fatal("unexpected month names")
	}
}
