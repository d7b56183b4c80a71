package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"aurabudget/internal/export"
	applog "aurabudget/internal/log"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 60 * time.Second
)

// Ensure interface conformance
var (
	_ export.Sink         = (*Client)(nil)
	_ export.HeaderWriter = (*Client)(nil)
)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string

	RetryAttempts uint
	RetryDelay    time.Duration

	// Options are appended to the client options; tests point the client at a fake endpoint.
	Options []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	attempts      uint
	delay         time.Duration
	logger        *applog.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentExport)

	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	opts, err := clientOptions(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	c := &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     sheetName,
		attempts:      cfg.RetryAttempts,
		delay:         cfg.RetryDelay,
		logger:        logger,
	}
	if c.attempts == 0 {
		c.attempts = defaultRetryAttempts
	}
	if c.delay <= 0 {
		c.delay = defaultRetryDelay
	}

	logger.InfoContext(ctx, "Google Sheets export initialized",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName)
	return c, nil
}

func clientOptions(ctx context.Context, cfg Config, logger *applog.Logger) ([]goption.ClientOption, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}

	if len(cfg.Options) > 0 {
		return append(opts, cfg.Options...), nil
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.InfoContext(ctx, "Reading service account credentials from file", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	return append(opts,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithHTTPClient(newHTTPClientWithPooling()),
	), nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// EnsureHeader writes the header row when the sheet's first row is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:G1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	header := make([]any, len(export.Header))
	for i, h := range export.Header {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Wrote export header", "sheet", c.sheetName)
	return nil
}

// Append adds one row below the existing data. Rate-limited requests are retried.
func (c *Client) Append(ctx context.Context, row export.Row) (string, error) {
	if row.ExpenseID <= 0 {
		return "", errors.New("export row without expense id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	req := &gsheet.ValueRange{Values: [][]any{row.Values()}}

	var ref string
	err := retry.Do(
		func() error {
			resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, req).
				ValueInputOption("USER_ENTERED").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).
				Do()
			if err != nil {
				return err
			}
			if resp.Updates != nil {
				ref = resp.Updates.UpdatedRange
			}
			return nil
		},
		retry.RetryIf(func(err error) bool {
			if isRateLimited(err) {
				c.logger.WarnContext(ctx, "Sheets rate limited, will retry", "error", err)
				return true
			}
			return false
		}),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("append row to sheet %s: %w", c.sheetName, err)
	}
	if ref == "" {
		ref = rng
	}

	c.logger.InfoContext(ctx, "Exported expense row",
		applog.FieldEntityID, row.ExpenseID,
		"kind", row.Kind,
		applog.FieldExportRef, ref)
	return ref, nil
}

func isRateLimited(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}
