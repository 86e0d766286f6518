package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"maks/internal/cache"
	"maks/internal/report"
	"maks/internal/secure"
	"maks/internal/services"
	sheetsmem "maks/internal/sheets/memory"
	"maks/internal/storage/memory"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	srv    *Server
	ts     *httptest.Server
	client *http.Client
	sheets *sheetsmem.Store
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	store := memory.New()
	vault := secure.NewVault(store, secure.NewKeyDeriver("test-salt", 1000))
	ledger := services.NewLedgerService(store, nil)
	writer := sheetsmem.New()

	deps := Deps{
		Ledger:   ledger,
		Security: services.NewSecurityService(vault, nil),
		Reports:  services.NewReportService(ledger, writer),
		Sessions: cache.NewSessions(10, time.Minute),
		Ready:    store,
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv := NewServer(":0", deps)
	srv.now = func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) }

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{srv: srv, ts: ts, client: &http.Client{Jar: jar}, sheets: writer}
}

// do sends body as JSON and decodes a JSON response into a map.
func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	resp := e.raw(t, method, path, body)
	defer resp.Body.Close()

	out := map[string]any{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode, out
}

func (e *testEnv) raw(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func expectStatus(t *testing.T, what string, got, want int, body map[string]any) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: status %d, want %d (body %v)", what, got, want, body)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := env.raw(t, http.MethodGet, path, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
	}

	down := newTestEnv(t, func(d *Deps) { d.Ready = fakePinger{err: errors.New("db gone")} })
	resp := down.raw(t, http.MethodGet, "/readyz", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store = %d", resp.StatusCode)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.raw(t, http.MethodGet, "/api/security/status", nil)
	resp.Body.Close()

	for name, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := resp.Header.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if !strings.HasPrefix(resp.Header.Get("X-Request-ID"), "req_") {
		t.Errorf("request id = %q", resp.Header.Get("X-Request-ID"))
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("session cookie = %+v", cookie)
	}
}

func TestSessionIsReusedAcrossRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/security/status", nil)
	env.do(t, http.MethodGet, "/api/security/status", nil)
	if n := env.srv.sessions.Size(); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
}

func TestLedgerFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.do(t, http.MethodGet, "/api/security/status", nil)
	if code != http.StatusOK || body["state"] != "uninitialized" {
		t.Fatalf("initial status = %d %v", code, body)
	}
	code, body = env.do(t, http.MethodGet, "/api/entries", nil)
	expectStatus(t, "list before setup", code, http.StatusLocked, body)

	code, body = env.do(t, http.MethodPost, "/api/security/setup", map[string]string{"pin": "1234", "confirm": "4321"})
	expectStatus(t, "mismatched setup", code, http.StatusUnprocessableEntity, body)
	if body["field"] != "confirm" {
		t.Errorf("mismatch field = %v", body["field"])
	}
	code, body = env.do(t, http.MethodPost, "/api/security/setup", map[string]string{"pin": "1234", "confirm": "1234"})
	expectStatus(t, "setup", code, http.StatusCreated, body)
	if body["state"] != "unlocked" {
		t.Fatalf("state after setup = %v", body["state"])
	}
	code, body = env.do(t, http.MethodPost, "/api/security/setup", map[string]string{"pin": "9999", "confirm": "9999"})
	expectStatus(t, "second setup", code, http.StatusConflict, body)

	// entries
	code, body = env.do(t, http.MethodPost, "/api/entries", map[string]any{"date": "2025-01-10", "amount": "700"})
	expectStatus(t, "add net", code, http.StatusCreated, body)
	entry := body["entry"].(map[string]any)
	if entry["amount"] != "700.00" || entry["kind"] != "TRANSFER" || entry["description"] != "Alga" {
		t.Errorf("net entry = %v", entry)
	}
	netID := entry["id"].(string)

	code, body = env.do(t, http.MethodPost, "/api/entries", map[string]any{"date": "2025-01-20", "amount": 100, "mode": "cash"})
	expectStatus(t, "add cash", code, http.StatusCreated, body)
	if e := body["entry"].(map[string]any); e["kind"] != "CASH" || e["description"] != "Alga (Uz rokas)" {
		t.Errorf("cash entry = %v", e)
	}

	code, body = env.do(t, http.MethodPost, "/api/entries", map[string]any{"date": "2025-02-05", "amount": "1000", "mode": "BRUTO", "hasTaxBook": true})
	expectStatus(t, "add gross", code, http.StatusCreated, body)
	if body["netPreview"] != "796.82" {
		t.Errorf("net preview = %v", body["netPreview"])
	}
	if e := body["entry"].(map[string]any); e["description"] != "Alga (No Bruto: 1000€)" {
		t.Errorf("gross description = %v", e["description"])
	}

	code, body = env.do(t, http.MethodPost, "/api/entries", map[string]any{"date": "2025-02-31", "amount": "10"})
	expectStatus(t, "bad date", code, http.StatusUnprocessableEntity, body)
	code, body = env.do(t, http.MethodPost, "/api/entries", map[string]any{"date": "2025-02-01", "amount": "-5"})
	expectStatus(t, "negative amount", code, http.StatusUnprocessableEntity, body)
	code, body = env.do(t, http.MethodPost, "/api/entries", map[string]any{"date": "2025-02-01", "amount": "5", "mode": "CHEQUE"})
	expectStatus(t, "unknown mode", code, http.StatusUnprocessableEntity, body)

	code, body = env.do(t, http.MethodGet, "/api/entries?year=2025&month=0", nil)
	expectStatus(t, "list january", code, http.StatusOK, body)
	if list := body["entries"].([]any); len(list) != 2 {
		t.Fatalf("january entries = %v", list)
	}
	code, body = env.do(t, http.MethodGet, "/api/entries?year=2025", nil)
	expectStatus(t, "half filter", code, http.StatusUnprocessableEntity, body)
	code, body = env.do(t, http.MethodGet, "/api/entries", nil)
	if list := body["entries"].([]any); len(list) != 3 || list[0].(map[string]any)["date"] != "2025-02-05" {
		t.Fatalf("all entries = %v", list)
	}

	// month record and correction
	code, body = env.do(t, http.MethodPut, "/api/months/2025/0", map[string]any{"rate": "10", "hours": 100})
	expectStatus(t, "save month", code, http.StatusOK, body)
	if body["expected"] != "1000.00" || body["key"] != "2025-0" {
		t.Errorf("saved month = %v", body)
	}
	code, body = env.do(t, http.MethodPut, "/api/months/2025/0", map[string]any{"rate": "-1"})
	expectStatus(t, "negative rate", code, http.StatusUnprocessableEntity, body)
	code, body = env.do(t, http.MethodPut, "/api/months/2025/12", map[string]any{"rate": "1"})
	expectStatus(t, "month 12", code, http.StatusUnprocessableEntity, body)

	code, body = env.do(t, http.MethodGet, "/api/months/2025/1", nil)
	expectStatus(t, "inherited month", code, http.StatusOK, body)
	if body["stored"] != false || body["rate"] != "10" || body["inheritedFrom"] != "2025-0" {
		t.Errorf("february = %v", body)
	}

	code, body = env.do(t, http.MethodPut, "/api/correction", map[string]any{"correction": "-50"})
	expectStatus(t, "save correction", code, http.StatusOK, body)
	code, body = env.do(t, http.MethodGet, "/api/correction", nil)
	if body["correction"] != "-50.00" {
		t.Errorf("correction = %v", body)
	}
	code, body = env.do(t, http.MethodPut, "/api/correction", map[string]any{"correction": "abc"})
	expectStatus(t, "bad correction", code, http.StatusUnprocessableEntity, body)

	// reconciliation
	code, body = env.do(t, http.MethodGet, "/api/summary?year=2025&month=0", nil)
	expectStatus(t, "summary", code, http.StatusOK, body)
	month := body["month"].(map[string]any)
	if month["received"] != "800.00" || month["balance"] != "200.00" || body["final"] != "150.00" {
		t.Errorf("summary = %v", body)
	}
	code, body = env.do(t, http.MethodGet, "/api/summary", nil)
	if code != http.StatusOK || body["month"].(map[string]any)["key"] != "2025-0" {
		t.Errorf("default summary month = %v", body)
	}

	code, body = env.do(t, http.MethodGet, "/api/years/2025", nil)
	expectStatus(t, "year", code, http.StatusOK, body)
	if months := body["months"].([]any); len(months) != 12 || body["received"] != "1800.00" {
		t.Errorf("year = %v", body)
	}

	// reports
	resp := env.raw(t, http.MethodGet, "/api/reports/2025/xlsx", nil)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != report.ContentType {
		t.Fatalf("xlsx = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "Maks_Parskats_2025_") {
		t.Errorf("disposition = %s", resp.Header.Get("Content-Disposition"))
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	rows, _ := wb.GetRows(report.EntriesSheet)
	wb.Close()
	if len(rows) != 4 {
		t.Errorf("workbook entry rows = %d", len(rows))
	}

	code, body = env.do(t, http.MethodPost, "/api/reports/2025/sheets", nil)
	expectStatus(t, "sheets", code, http.StatusOK, body)
	if body["ref"] != "mem:2025:1" {
		t.Errorf("sheets ref = %v", body["ref"])
	}

	// lock and unlock
	code, body = env.do(t, http.MethodPost, "/api/security/lock", nil)
	if code != http.StatusOK || body["state"] != "locked" {
		t.Fatalf("lock = %d %v", code, body)
	}
	code, body = env.do(t, http.MethodGet, "/api/entries", nil)
	expectStatus(t, "list while locked", code, http.StatusLocked, body)
	code, body = env.do(t, http.MethodPost, "/api/security/unlock", map[string]string{"pin": "0000"})
	expectStatus(t, "wrong pin", code, http.StatusUnauthorized, body)
	if body["error"] != "Nepareizs PIN kods" {
		t.Errorf("wrong pin message = %v", body["error"])
	}
	code, body = env.do(t, http.MethodPost, "/api/security/unlock", map[string]string{"pin": "1234"})
	expectStatus(t, "unlock", code, http.StatusOK, body)

	// delete
	code, body = env.do(t, http.MethodDelete, "/api/entries/"+netID, nil)
	expectStatus(t, "delete", code, http.StatusNoContent, body)
	code, body = env.do(t, http.MethodDelete, "/api/entries/"+netID, nil)
	expectStatus(t, "delete again", code, http.StatusNotFound, body)
	code, body = env.do(t, http.MethodGet, "/api/entries", nil)
	if list := body["entries"].([]any); len(list) != 2 {
		t.Errorf("entries after delete = %d", len(list))
	}
}

func TestUnlockBeforeSetup(t *testing.T) {
	env := newTestEnv(t, nil)
	code, body := env.do(t, http.MethodPost, "/api/security/unlock", map[string]string{"pin": "1234"})
	expectStatus(t, "unlock", code, http.StatusConflict, body)
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)
	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/api/security/setup", strings.NewReader("{not json"))
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSheetsDisabled(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Reports = services.NewReportService(d.Ledger.(*services.LedgerService), nil)
	})
	env.do(t, http.MethodPost, "/api/security/setup", map[string]string{"pin": "1234", "confirm": "1234"})
	code, body := env.do(t, http.MethodPost, "/api/reports/2025/sheets", nil)
	expectStatus(t, "sheets disabled", code, http.StatusNotImplemented, body)
}

func TestTaxEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	code, body := env.do(t, http.MethodGet, "/api/tax/net?gross=1000&hasTaxBook=true", nil)
	expectStatus(t, "net", code, http.StatusOK, body)
	if body["net"] != "796.82" || body["socialTax"] != "105.00" {
		t.Errorf("breakdown = %v", body)
	}

	code, body = env.do(t, http.MethodGet, "/api/tax/gross?net=796.82&hasTaxBook=on", nil)
	expectStatus(t, "gross", code, http.StatusOK, body)
	gross, err := decimal.NewFromString(body["gross"].(string))
	if err != nil || gross.Sub(decimal.NewFromInt(1000)).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		t.Errorf("gross = %v", body)
	}

	code, body = env.do(t, http.MethodGet, "/api/tax/net?gross=abc", nil)
	expectStatus(t, "bad gross", code, http.StatusUnprocessableEntity, body)
	code, body = env.do(t, http.MethodGet, "/api/tax/net?gross=1000&dependents=11", nil)
	expectStatus(t, "too many dependents", code, http.StatusUnprocessableEntity, body)
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.RateLimit = 2 })

	for i := 0; i < 2; i++ {
		code, body := env.do(t, http.MethodPost, "/api/security/lock", nil)
		expectStatus(t, "lock", code, http.StatusOK, body)
	}
	resp := env.raw(t, http.MethodPost, "/api/security/lock", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("third POST = %d", resp.StatusCode)
	}
	for i := 0; i < 5; i++ {
		code, _ := env.do(t, http.MethodGet, "/api/security/status", nil)
		if code != http.StatusOK {
			t.Fatalf("GET limited: %d", code)
		}
	}
}

func TestShutdownLocksSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/security/setup", map[string]string{"pin": "1234", "confirm": "1234"})
	if env.srv.sessions.Size() != 1 {
		t.Fatalf("sessions = %d", env.srv.sessions.Size())
	}
	env.ts.Close()
	if err := env.srv.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if env.srv.sessions.Size() != 0 {
		t.Fatalf("sessions after shutdown = %d", env.srv.sessions.Size())
	}
	if err := env.srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
