package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"aurabudget/internal/core"
	"aurabudget/internal/export"
	applog "aurabudget/internal/log"
)

func testLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	return applog.New(cfg)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{
		SpreadsheetID: "sheet-123",
		SheetName:     "Expenses",
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		Options: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithoutAuthentication(),
			goption.WithHTTPClient(srv.Client()),
		},
	}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func testRow() export.Row {
	return export.NewRow(core.Expense{
		ID:          7,
		Amount:      core.Money{Cents: 1999},
		Date:        core.NewDate(2024, 4, 2),
		Description: "Books",
	}, "Education")
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"}, testLogger())
	if err == nil || !strings.Contains(err.Error(), "missing spreadsheet id") {
		t.Errorf("New() error = %v, want missing spreadsheet id", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, testLogger())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("New() error = %v, want missing credentials", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/non/existent/sa.json"}, testLogger())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("New() error = %v, want read error", err)
	}
}

func TestClient_Append(t *testing.T) {
	var gotBody struct {
		Values [][]any `json:"values"`
	}
	var gotQuery string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, ":append") {
			http.Error(w, "unexpected request "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
			return
		}
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"spreadsheetId":"sheet-123","updates":{"updatedRange":"Expenses!A5:G5","updatedRows":1}}`)
	})

	ref, err := c.Append(context.Background(), testRow())
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "Expenses!A5:G5" {
		t.Errorf("ref = %q, want Expenses!A5:G5", ref)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") || !strings.Contains(gotQuery, "insertDataOption=INSERT_ROWS") {
		t.Errorf("query = %q", gotQuery)
	}
	if len(gotBody.Values) != 1 || len(gotBody.Values[0]) != len(export.Header) {
		t.Fatalf("body values = %v", gotBody.Values)
	}
	if gotBody.Values[0][4] != "19.99" {
		t.Errorf("amount column = %v, want 19.99", gotBody.Values[0][4])
	}
}

func TestClient_AppendRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"code":429,"message":"quota exceeded"}}`)
			return
		}
		io.WriteString(w, `{"updates":{"updatedRange":"Expenses!A2:G2"}}`)
	})

	ref, err := c.Append(context.Background(), testRow())
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "Expenses!A2:G2" {
		t.Errorf("ref = %q", ref)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_AppendDoesNotRetryOtherErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"forbidden"}}`)
	})

	_, err := c.Append(context.Background(), testRow())
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusForbidden {
		t.Fatalf("Append() error = %v, want 403 googleapi error", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_AppendRejectsRowWithoutID(t *testing.T) {
	c := &Client{}
	if _, err := c.Append(context.Background(), export.Row{}); err == nil {
		t.Error("expected error for row without expense id")
	}
}

func TestClient_EnsureHeader(t *testing.T) {
	tests := []struct {
		name      string
		existing  string
		wantWrite bool
	}{
		{"empty sheet gets header", `{"range":"Expenses!A1:G1"}`, true},
		{"existing header kept", `{"range":"Expenses!A1:G1","values":[["Expense ID"]]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wrote atomic.Bool
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch r.Method {
				case http.MethodGet:
					io.WriteString(w, tt.existing)
				case http.MethodPut:
					wrote.Store(true)
					if !strings.Contains(r.URL.RawQuery, "valueInputOption=RAW") {
						http.Error(w, "bad query", http.StatusBadRequest)
						return
					}
					io.WriteString(w, `{"updatedRange":"Expenses!A1:G1"}`)
				default:
					http.Error(w, "unexpected", http.StatusBadRequest)
				}
			})

			if err := c.EnsureHeader(context.Background()); err != nil {
				t.Fatalf("EnsureHeader() error = %v", err)
			}
			if wrote.Load() != tt.wantWrite {
				t.Errorf("header written = %v, want %v", wrote.Load(), tt.wantWrite)
			}
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	if !isRateLimited(&googleapi.Error{Code: http.StatusTooManyRequests}) {
		t.Error("429 should be rate limited")
	}
	if isRateLimited(&googleapi.Error{Code: http.StatusInternalServerError}) {
		t.Error("500 should not be rate limited")
	}
	if isRateLimited(errors.New("plain")) {
		t.Error("plain error should not be rate limited")
	}
}
