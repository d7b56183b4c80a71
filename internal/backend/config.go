package backend

import (
	"fmt"
	"time"

	"aurabudget/internal/config"
	"aurabudget/internal/export/google"
)

// ExportType selects the export sink.
type ExportType string

const (
	MemoryExport ExportType = "memory"
	SheetsExport ExportType = "sheets"
)

func (t ExportType) String() string { return string(t) }

func (t ExportType) IsValid() bool {
	switch t {
	case MemoryExport, SheetsExport:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	SQLiteDBPath string

	// AMQP is optional; an empty URL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Export ExportType
	Google google.Config
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	exportType := ExportType(appConfig.ExportBackend)
	if !exportType.IsValid() {
		return Config{}, fmt.Errorf("invalid export backend in config: %s", appConfig.ExportBackend)
	}

	return Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
		Export:       exportType,
		Google: google.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
			RetryAttempts:   3,
			RetryDelay:      time.Minute,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	switch c.Export {
	case MemoryExport:
	case SheetsExport:
		if c.Google.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets export")
		}
		if c.Google.SheetName == "" {
			return fmt.Errorf("Google Sheet name is required for sheets export")
		}
		if c.Google.CredentialsFile == "" && c.Google.CredentialsJSON == "" {
			return fmt.Errorf("either a service account file or JSON must be provided for sheets export")
		}
	default:
		return fmt.Errorf("invalid export backend: %s", c.Export)
	}
	return nil
}

// ExportTypeStrings returns all valid export backend names
func ExportTypeStrings() []string {
	return []string{MemoryExport.String(), SheetsExport.String()}
}
