package backend

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"aurabudget/internal/config"
	"aurabudget/internal/export/memory"
	applog "aurabudget/internal/log"
)

func testLogger() *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Output = io.Discard
	return applog.New(cfg)
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		SQLiteDBPath:             "/tmp/a.db",
		AMQPURL:                  "amqp://localhost",
		AMQPExchange:             "aurabudget",
		AMQPQueue:                "expense_changes",
		ExportBackend:            "sheets",
		GoogleSpreadsheetID:      "sheet-id",
		GoogleSheetName:          "Expenses",
		GoogleServiceAccountFile: "/etc/sa.json",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Export != SheetsExport || cfg.Google.SpreadsheetID != "sheet-id" || cfg.Google.CredentialsFile != "/etc/sa.json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.AMQPQueue != "expense_changes" {
		t.Fatalf("queue = %q", cfg.AMQPQueue)
	}

	if _, err := FromAppConfig(&config.Config{ExportBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown export backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{SQLiteDBPath: "x.db", Export: MemoryExport}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "memory export", mutate: func(*Config) {}},
		{name: "missing db path", mutate: func(c *Config) { c.SQLiteDBPath = "" }, wantErr: "database path"},
		{name: "amqp without queue", mutate: func(c *Config) { c.AMQPURL = "amqp://x"; c.AMQPExchange = "e" }, wantErr: "exchange and queue"},
		{name: "sheets without id", mutate: func(c *Config) { c.Export = SheetsExport }, wantErr: "Spreadsheet ID"},
		{
			name: "sheets without credentials",
			mutate: func(c *Config) {
				c.Export = SheetsExport
				c.Google.SpreadsheetID = "id"
				c.Google.SheetName = "Expenses"
			},
			wantErr: "service account",
		},
		{
			name: "sheets complete",
			mutate: func(c *Config) {
				c.Export = SheetsExport
				c.Google.SpreadsheetID = "id"
				c.Google.SheetName = "Expenses"
				c.Google.CredentialsJSON = "{}"
			},
		},
		{name: "unknown export", mutate: func(c *Config) { c.Export = "csv" }, wantErr: "invalid export backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFactoryOpenWithoutAMQP(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(testLogger())
	cfg := Config{SQLiteDBPath: filepath.Join(t.TempDir(), "budget.db"), Export: MemoryExport}

	b, err := f.Open(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if b.AMQP != nil {
		t.Fatal("AMQP client should be nil when no URL is configured")
	}
	if p := b.Publisher(); p != nil {
		t.Fatalf("Publisher() = %v, want nil", p)
	}
	if err := b.Repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	sink, err := f.OpenSink(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sink.(*memory.Store); !ok {
		t.Fatalf("sink type = %T", sink)
	}
}

func TestFactoryOpenRejectsInvalidConfig(t *testing.T) {
	f := NewFactory(testLogger())
	if _, err := f.Open(context.Background(), Config{Export: MemoryExport}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBackendCloseIsIdempotent(t *testing.T) {
	f := NewFactory(testLogger())
	b, err := f.Open(context.Background(), Config{SQLiteDBPath: filepath.Join(t.TempDir(), "b.db"), Export: MemoryExport})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
