package memory

import (
	"context"
	"fmt"
	"sync"

	"maks/internal/report"
)

// Store keeps pushed reports in process memory, one per year. Used when no
// spreadsheet is configured and in tests.
type Store struct {
	mu      sync.Mutex
	reports map[int]report.Report
	writes  int
}

func New() *Store {
	return &Store{reports: make(map[int]report.Report)}
}

// WriteReport replaces the stored report for r.Year.
func (s *Store) WriteReport(_ context.Context, r report.Report) (string, error) {
	if r.Year < 1 {
		return "", fmt.Errorf("invalid report year %d", r.Year)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.Year] = r
	s.writes++
	return fmt.Sprintf("mem:%d:%d", r.Year, s.writes), nil
}

// Report returns the last report written for year.
func (s *Store) Report(year int) (report.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[year]
	return r, ok
}
