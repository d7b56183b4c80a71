package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"aurabudget/internal/core"
)

func TestParseExpenseFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantErr  bool
		wantCat  int64
		wantFrom string
		wantTo   string
		wantQ    string
		wantLim  int
	}{
		{
			name:  "empty query",
			query: url.Values{},
		},
		{
			name:     "all values provided",
			query:    url.Values{"category_id": {"3"}, "from": {"2025-03-01"}, "to": {"2025-03-31"}, "q": {" rent "}, "limit": {"10"}},
			wantCat:  3,
			wantFrom: "2025-03-01",
			wantTo:   "2025-03-31",
			wantQ:    "rent",
			wantLim:  10,
		},
		{
			name:    "non numeric category",
			query:   url.Values{"category_id": {"food"}},
			wantErr: true,
		},
		{
			name:    "negative limit",
			query:   url.Values{"limit": {"-1"}},
			wantErr: true,
		},
		{
			name:    "bad date",
			query:   url.Values{"to": {"31/03/2025"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseExpenseFilter(tt.query)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("expected bad request, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if f.CategoryID != tt.wantCat || f.From.String() != tt.wantFrom || f.To.String() != tt.wantTo ||
				f.Query != tt.wantQ || f.Limit != tt.wantLim {
				t.Fatalf("unexpected filter: %+v", f)
			}
		})
	}
}

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth time.Month
		wantErr   bool
	}{
		{"defaults to now", url.Values{}, 2025, time.March, false},
		{"explicit", url.Values{"year": {"2024"}, "month": {"12"}}, 2024, time.December, false},
		{"only month", url.Values{"month": {"1"}}, 2025, time.January, false},
		{"month out of range", url.Values{"month": {"0"}}, 0, 0, true},
		{"year not a number", url.Values{"year": {"abc"}}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseMonthParams(tt.query, now)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("expected bad request, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Year != tt.wantYear || p.Month != tt.wantMonth {
				t.Fatalf("got %d-%d", p.Year, p.Month)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"amount":"4.20"}`, 0},
		{"malformed", `{"amount":`, http.StatusBadRequest},
		{"two documents", `{"amount":1}{"amount":2}`, http.StatusBadRequest},
		{"bad amount", `{"amount":"four"}`, http.StatusUnprocessableEntity},
		{"too large", `{"amount":"` + strings.Repeat("1", maxBodyBytes) + `"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var in contributionInput
			err := decodeJSON(httptest.NewRecorder(), req, &in)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatal(err)
				}
				if in.Amount.Cents != 420 {
					t.Fatalf("amount = %d", in.Amount.Cents)
				}
				return
			}
			if got := errorStatus(err); got != tt.wantCode {
				t.Fatalf("status = %d, want %d (err %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("id", tt.value)
			id, err := pathID(req)
			if (err != nil) != tt.wantErr || id != tt.want {
				t.Fatalf("pathID(%q) = %d, %v", tt.value, id, err)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	if got := errorStatus(core.ErrEmptyName); got != http.StatusUnprocessableEntity {
		t.Fatalf("validation status = %d", got)
	}
	if got := errorStatus(errors.New("disk full")); got != http.StatusInternalServerError {
		t.Fatalf("unknown error status = %d", got)
	}
}
