package sheets

import (
	"context"

	"maks/internal/report"
)

// Ports for outbound adapters.
type (
	// ReportWriter publishes a rendered yearly report to a spreadsheet and
	// returns a reference to where it landed.
	ReportWriter interface {
		WriteReport(ctx context.Context, r report.Report) (ref string, err error)
	}
)
