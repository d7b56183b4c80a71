// Package http serves the JSON API and the live view streams.
//
// This file holds the helpers that turn path values, query strings and JSON
// bodies into domain values. Every failure wraps errBadRequest, except domain
// validation errors raised while decoding money and dates, which keep their
// own identity so they are answered with 422.
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

	"aurabudget/internal/core"
	"aurabudget/internal/storage"
)

const maxBodyBytes = 1 << 20

// MonthParams holds a parsed year/month pair.
type MonthParams struct {
	Year  int
	Month time.Month
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// pathID parses the {id} path value as a positive integer.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// queryInt64 returns 0 when key is absent.
func queryInt64(q url.Values, key string) (int64, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, badRequest("invalid %s %q", key, v)
	}
	return n, nil
}

func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("invalid %s %q, expected YYYY-MM-DD", key, v)
	}
	return d, nil
}

// queryBool accepts the strconv.ParseBool spellings. Absent means false.
func queryBool(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("invalid %s %q", key, v)
	}
	return b, nil
}

// ParseExpenseFilter reads category_id, from, to, q and limit.
func ParseExpenseFilter(q url.Values) (storage.ExpenseFilter, error) {
	var (
		f   storage.ExpenseFilter
		err error
	)
	if f.CategoryID, err = queryInt64(q, "category_id"); err != nil {
		return f, err
	}
	if f.From, err = queryDate(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q, "to"); err != nil {
		return f, err
	}
	limit, err := queryInt64(q, "limit")
	if err != nil {
		return f, err
	}
	f.Limit = int(limit)
	f.Query = strings.TrimSpace(q.Get("q"))
	return f, nil
}

// ParseMonthParams reads year and month, defaulting each to now's.
func ParseMonthParams(q url.Values, now time.Time) (MonthParams, error) {
	p := MonthParams{Year: now.Year(), Month: now.Month()}
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return p, badRequest("invalid year %q", v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return p, badRequest("invalid month %q", v)
		}
		p.Month = time.Month(m)
	}
	return p, nil
}

// decodeJSON reads a single JSON document of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return badRequest("body larger than %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return badRequest("empty body")
		default:
			return badRequest("malformed JSON body: %v", err)
		}
	}
	if dec.More() {
		return badRequest("body must hold a single JSON object")
	}
	return nil
}
