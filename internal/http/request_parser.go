package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"maks/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var errBadBody = errors.New("invalid request body")

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}

// parseYear parses a calendar year path or query value.
func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y < 1 || y > 9999 {
		return 0, core.Invalid("year", core.ErrInvalidMonthKey)
	}
	return y, nil
}

// parseMonthKey builds a key from a year and a zero-based month.
func parseMonthKey(year, month string) (core.MonthKey, error) {
	y, err := parseYear(year)
	if err != nil {
		return core.MonthKey{}, err
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return core.MonthKey{}, core.Invalid("month", core.ErrInvalidMonthKey)
	}
	k := core.MonthKey{Year: y, Month: m}
	if err := k.Validate(); err != nil {
		return core.MonthKey{}, core.Invalid("month", err)
	}
	return k, nil
}

// pathMonthKey reads the {year} and {month} path values.
func pathMonthKey(r *http.Request) (core.MonthKey, error) {
	return parseMonthKey(r.PathValue("year"), r.PathValue("month"))
}

// queryMonthFilter returns the month named by the year and month query
// parameters, or nil when neither is given. Giving only one is an error.
func queryMonthFilter(query url.Values) (*core.MonthKey, error) {
	year := strings.TrimSpace(query.Get("year"))
	month := strings.TrimSpace(query.Get("month"))
	if year == "" && month == "" {
		return nil, nil
	}
	if year == "" || month == "" {
		return nil, core.Invalid("month", core.ErrInvalidMonthKey)
	}
	k, err := parseMonthKey(year, month)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

// queryMonthOrNow is queryMonthFilter defaulting to the month of now.
func queryMonthOrNow(query url.Values, now time.Time) (core.MonthKey, error) {
	k, err := queryMonthFilter(query)
	if err != nil {
		return core.MonthKey{}, err
	}
	if k == nil {
		return core.NewMonthKey(now.Year(), now.Month()), nil
	}
	return *k, nil
}

// queryDependents parses an optional dependents count.
func queryDependents(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("dependents"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > core.MaxDependents {
		return 0, core.Invalid("dependents", core.ErrInvalidDependents)
	}
	return n, nil
}

// queryBool accepts the strconv.ParseBool spellings plus "on"; anything
// else, including absence, is false.
func queryBool(query url.Values, key string) bool {
	v := strings.ToLower(strings.TrimSpace(query.Get(key)))
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
