package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aurabudget/internal/core"
)

const (
	ExportBackendMemory = "memory"
	ExportBackendSheets = "sheets"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath     string
	CategorySeedFile string

	// AMQP; an empty URL disables change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Export
	ExportBackend            string
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	ExportBatchSize          int
	ExportInterval           time.Duration

	// Budgets and analytics
	RolloverInterval time.Duration
	MonthlyIncome    string
	Currency         string
	TrendMonths      int
	SeedSampleGoals  bool

	// View cache
	ViewCacheTTL  time.Duration
	ViewCacheSize int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/aurabudget.db"),
		CategorySeedFile: getEnv("CATEGORY_SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "aurabudget"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_changes"),

		ExportBackend:            getEnv("EXPORT_BACKEND", ExportBackendMemory),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Expenses"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		ExportBatchSize:          getEnvInt("EXPORT_BATCH_SIZE", 25),
		ExportInterval:           getEnvDuration("EXPORT_INTERVAL", time.Minute),

		RolloverInterval: getEnvDuration("ROLLOVER_INTERVAL", time.Hour),
		MonthlyIncome:    getEnv("MONTHLY_INCOME", "0"),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "USD")),
		TrendMonths:      getEnvInt("TREND_MONTHS", 6),
		SeedSampleGoals:  getEnvBool("SEED_SAMPLE_GOALS", true),

		ViewCacheTTL:  getEnvDuration("VIEW_CACHE_TTL", 30*time.Second),
		ViewCacheSize: getEnvInt("VIEW_CACHE_SIZE", 64),

		LogLevel:  getEnv("LOG_LEVEL", "INFO"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Income returns MonthlyIncome as money. Invalid values yield zero; Validate reports them.
func (c *Config) Income() core.Money {
	d, err := decimal.NewFromString(strings.TrimSpace(c.MonthlyIncome))
	if err != nil || d.IsNegative() {
		return core.Money{}
	}
	return core.FromDecimal(d)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.CategorySeedFile != "" {
		if _, err := os.Stat(c.CategorySeedFile); err != nil {
			errors = append(errors, fmt.Sprintf("category seed file is not readable: %s", c.CategorySeedFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.ExportBackend {
	case ExportBackendMemory:
	case ExportBackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets export")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets export")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid export backend '%s': must be one of [%s %s]",
			c.ExportBackend, ExportBackendMemory, ExportBackendSheets))
	}

	if c.ExportBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}

	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if c.RolloverInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rollover interval %v: must be at least 1 minute", c.RolloverInterval))
	}

	if d, err := decimal.NewFromString(strings.TrimSpace(c.MonthlyIncome)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid monthly income '%s': must be a decimal number", c.MonthlyIncome))
	} else if d.IsNegative() {
		errors = append(errors, fmt.Sprintf("invalid monthly income '%s': cannot be negative", c.MonthlyIncome))
	}

	if !currencyPattern.MatchString(c.Currency) {
		errors = append(errors, fmt.Sprintf("invalid currency '%s': must be a 3-letter ISO code", c.Currency))
	}

	if c.TrendMonths < 1 || c.TrendMonths > 36 {
		errors = append(errors, fmt.Sprintf("invalid trend months %d: must be between 1 and 36", c.TrendMonths))
	}

	if c.ViewCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid view cache size %d: must be at least 1", c.ViewCacheSize))
	}
	if c.ViewCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid view cache TTL %v: must be positive", c.ViewCacheTTL))
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
