package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"stockCalculator/internal/adapters/logger"
	"stockCalculator/internal/bulkparse"
	"stockCalculator/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	// Storage
	DBPath     string // SQLite database file
	StorageKey string // Key the portfolio document is stored under

	// Accounting
	DefaultPolicy domain.CostBasisPolicy // Policy used on first run, before anything is stored

	// Bulk import keywords
	BulkKeywords bulkparse.Keywords

	// Output
	ExportDir   string
	ChartWidth  int
	ChartHeight int

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	// Storage
	cfg.DBPath = getEnv("DB_PATH", "./data/portfolio.db")
	cfg.StorageKey = getEnv("STORAGE_KEY", "stockCalculator")

	// Accounting
	cfg.DefaultPolicy, err = domain.ParseCostBasisPolicy(getEnv("DEFAULT_COST_BASIS_POLICY", "include"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_COST_BASIS_POLICY: %v", err))
	}

	// Bulk import
	cfg.BulkKeywords = bulkparse.Keywords{
		Buy:       getEnv("BULK_BUY_KEYWORD", bulkparse.DefaultKeywords.Buy),
		Sell:      getEnv("BULK_SELL_KEYWORD", bulkparse.DefaultKeywords.Sell),
		Unit:      getEnv("BULK_UNIT", bulkparse.DefaultKeywords.Unit),
		UnitPrice: getEnv("BULK_UNIT_PRICE_KEYWORD", bulkparse.DefaultKeywords.UnitPrice),
	}
	if cfg.BulkKeywords.Buy == cfg.BulkKeywords.Sell {
		errs = append(errs, "BULK_BUY_KEYWORD and BULK_SELL_KEYWORD must differ")
	}

	// Output
	cfg.ExportDir = getEnv("EXPORT_DIR", ".")

	cfg.ChartWidth, err = getEnvAsIntRequired("CHART_WIDTH", 512)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CHART_WIDTH: %v", err))
	} else if cfg.ChartWidth <= 0 {
		errs = append(errs, "CHART_WIDTH must be positive")
	}

	cfg.ChartHeight, err = getEnvAsIntRequired("CHART_HEIGHT", 512)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CHART_HEIGHT: %v", err))
	} else if cfg.ChartHeight <= 0 {
		errs = append(errs, "CHART_HEIGHT must be positive")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "WARN"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
