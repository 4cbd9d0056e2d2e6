package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

const maxBodyBytes = 1 << 20

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var errMalformedBody = errors.New("malformed JSON body")

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errMalformedBody
	}
	return nil
}

// pathID parses the {id} wildcard as a positive integer.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", "ID must be a positive integer")
	}
	return id, nil
}

// queryID parses an optional positive integer filter; absent means 0.
func queryID(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(name, "Must be a positive integer")
	}
	return id, nil
}

func parseLimit(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, core.NewValidationError("limit", "Limit must be a positive integer")
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, nil
}

// parseDate accepts a calendar date (interpreted in loc) or an RFC 3339
// timestamp.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrDateRequired
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	return time.Time{}, core.NewValidationError("date", "Date must be YYYY-MM-DD or RFC 3339")
}

// parseBalance reads an opening balance. Unlike transaction amounts it may
// be zero or negative; empty means zero.
func parseBalance(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || strings.ContainsAny(s, "eE") {
		return 0, core.NewValidationError("balance", "Balance must be a decimal number")
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, core.NewValidationError("balance", "Balance is out of range")
	}
	return cents.IntPart(), nil
}

// parseMonthQuery reads year and month, defaulting to the current month in loc.
func parseMonthQuery(r *http.Request, loc *time.Location) (int, int, error) {
	year, month := core.CurrentMonth(time.Now(), loc)
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, core.NewValidationError("year", "Year must be between 1 and 9999")
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, core.ErrInvalidMonth
		}
		month = m
	}
	return year, month, nil
}
