package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"maks/internal/report"
	ports "maks/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultBaseName = "Maks"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// baseName prefixes every report tab: "<year> <base> <sheet>".
	baseName string
}

var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client from a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, spreadsheetID, baseName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := serviceAccountCredentials(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, spreadsheetID, baseName), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, baseName string) *Client {
	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		baseName = defaultBaseName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, baseName: baseName}
}

func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteReport replaces the report tabs for r.Year, creating missing tabs.
func (c *Client) WriteReport(ctx context.Context, r report.Report) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	titles := make([]string, len(r.Sheets))
	for i, sh := range r.Sheets {
		titles[i] = c.sheetTitle(r.Year, sh.Name)
	}
	if err := c.ensureSheets(ctx, titles); err != nil {
		return "", err
	}

	for i, sh := range r.Sheets {
		title := titles[i]
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoteSheet(title), &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("clear %s: %w", title, err)
		}
		vr := &gsheet.ValueRange{Values: toValues(sh.Rows)}
		rng := quoteSheet(title) + "!A1"
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("update %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Report sheet written", "sheet", title, "rows", len(sh.Rows))
	}
	return c.spreadsheetID, nil
}

func (c *Client) ensureSheets(ctx context.Context, titles []string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	existing := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing = append(existing, sh.Properties.Title)
		}
	}

	missing := missingTitles(existing, titles)
	if len(missing) == 0 {
		return nil
	}
	reqs := make([]*gsheet.Request, len(missing))
	for i, title := range missing {
		reqs[i] = &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: title},
		}}
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheets %v: %w", missing, err)
	}
	return nil
}

func (c *Client) sheetTitle(year int, name string) string {
	return yearPrefixedName(c.baseName+" "+name, year)
}

func missingTitles(existing, wanted []string) []string {
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[t] = struct{}{}
	}
	var out []string
	for _, t := range wanted {
		if _, ok := have[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toValues(rows [][]any) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			out[i] = []interface{}{""}
			continue
		}
		out[i] = append([]interface{}(nil), row...)
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
