// Package report lays out the yearly payroll report. The same layout is
// rendered to an XLSX workbook and pushed to Google Sheets.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"maks/internal/balance"
	"maks/internal/core"
)

const (
	EntriesSheet = "Ieraksti"
	SummarySheet = "Kopsavilkums"

	dateLayout      = "02.01.2006."
	generatedLayout = "2006-01-02 15:04"
)

var monthNames = [12]string{
	"Janvāris", "Februāris", "Marts", "Aprīlis", "Maijs", "Jūnijs",
	"Jūlijs", "Augusts", "Septembris", "Oktobris", "Novembris", "Decembris",
}

var (
	entryHeader = []any{"Datums", "Summa", "Veids", "Apraksts"}
	monthHeader = []any{"Mēnesis", "Likme", "Stundas", "Pienākas", "Pārskaitījums", "Uz rokas", "Saņemts", "Bilance"}
)

// Sheet is a named grid of cell values; the first row is the header.
type Sheet struct {
	Name string
	Rows [][]any
	// Widths are column widths in characters, left to right.
	Widths []float64
}

// Report is the rendered yearly report.
type Report struct {
	Year        int
	GeneratedAt time.Time
	Summary     balance.YearSummary
	Sheets      []Sheet
}

// MonthName returns the Latvian name of a zero-based month.
func MonthName(month int) string {
	if month < 0 || month > 11 {
		return ""
	}
	return monthNames[month]
}

// Build lays out the report for year from a decrypted snapshot.
func Build(snap balance.Snapshot, year int, now time.Time) Report {
	summary := snap.Year(year, now)
	return Report{
		Year:        year,
		GeneratedAt: now,
		Summary:     summary,
		Sheets: []Sheet{
			entriesSheet(snap.Entries, year),
			summarySheet(summary),
		},
	}
}

// Filename is the download name of the workbook.
func (r Report) Filename() string {
	return fmt.Sprintf("Maks_Parskats_%d_%s.xlsx", r.Year, r.GeneratedAt.Format("2006-01-02"))
}

func entriesSheet(all []core.Entry, year int) Sheet {
	var entries []core.Entry
	for _, e := range all {
		if e.Date.Year() == year {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date.Time) {
			return entries[i].Date.Before(entries[j].Date.Time)
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	rows := make([][]any, 0, len(entries)+1)
	rows = append(rows, entryHeader)
	for _, e := range entries {
		rows = append(rows, []any{
			e.Date.Format(dateLayout),
			num(e.Amount.Decimal()),
			kindLabel(e.Kind),
			e.Description,
		})
	}
	return Sheet{Name: EntriesSheet, Rows: rows, Widths: []float64{12, 10, 15, 30}}
}

func kindLabel(k core.Kind) string {
	if core.NormalizeKind(string(k)) == core.KindCash {
		return "Uz rokas"
	}
	return "Pārskaitījums"
}

func summarySheet(y balance.YearSummary) Sheet {
	rows := make([][]any, 0, 32)
	rows = append(rows, monthHeader)
	for m, ms := range y.Months {
		rows = append(rows, []any{
			MonthName(m),
			num(ms.Record.Rate),
			num(ms.Record.Hours),
			num(ms.Expected),
			num(ms.TransferTotal),
			num(ms.CashTotal),
			num(ms.Received),
			num(ms.Balance),
		})
	}
	rows = append(rows,
		[]any{"Kopā", "", "", num(y.Expected), num(y.Transfer), num(y.Cash), num(y.Received), num(y.Balance)},
		[]any{},
		[]any{"Kopsavilkums", ""},
		[]any{"Pienākas (Aprēķināts)", num(y.Expected)},
		[]any{"Neto (Pārskaitījums)", num(y.Transfer)},
		[]any{"Uz rokas (Skaidra nauda)", num(y.Cash)},
		[]any{"Kopā saņemts", num(y.Received)},
		[]any{},
		[]any{"Bilance", ""},
		[]any{"Mēneša bilance", num(y.Balance)},
		[]any{"Uzkrātais atlikums", num(y.CarriedOver)},
		[]any{"Korekcija", num(y.Correction)},
		[]any{"Gala bilance (Iekšā)", num(y.Final)},
		[]any{},
		[]any{"Izveidots", y.GeneratedAt.Format(generatedLayout)},
	)
	return Sheet{Name: SummarySheet, Rows: rows, Widths: []float64{26, 10, 10, 12, 14, 12, 12, 12}}
}

// num renders money as a spreadsheet number rounded to cents.
func num(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
