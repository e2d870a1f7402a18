package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fortune/database"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPAddr string

	// Wallet and referral configuration
	ReferralBonusFC int64           // FC credited to a referrer on the referred user's first qualifying purchase
	FCExchangeRate  decimal.Decimal // Currency units charged per FC

	// Inventory configuration
	MaxBookSize  int64 // Upper bound on tickets materialized for one book
	ListPageSize int   // Page size used when streaming available tickets

	// Transaction retry configuration
	TxMaxRetries int

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables forwarding

	// Metrics configuration
	MetricsEnabled  bool
	MetricsExporter string // "console", "otlp" or "none"
	OTLPEndpoint    string
	MetricsInterval time.Duration
	ServiceName     string

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables, reading a local .env first
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		ReferralBonusFC: 100,
		FCExchangeRate:  decimal.NewFromInt(1),

		MaxBookSize:  100000,
		ListPageSize: 200,
		TxMaxRetries: 3,

		NATSServers: os.Getenv("NATS_SERVERS"),

		MetricsEnabled:  os.Getenv("OTEL_METRICS_ENABLED") == "true",
		MetricsExporter: getEnvWithDefault("OTEL_METRICS_EXPORTER", "console"),
		OTLPEndpoint:    getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		MetricsInterval: 30 * time.Second,
		ServiceName:     getEnvWithDefault("OTEL_SERVICE_NAME", "fortune"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if bonus := os.Getenv("REFERRAL_BONUS_FC"); bonus != "" {
		parsed, err := strconv.ParseInt(bonus, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("REFERRAL_BONUS_FC must be a positive integer, got %q", bonus)
		}
		config.ReferralBonusFC = parsed
	}
	if rate := os.Getenv("FC_EXCHANGE_RATE"); rate != "" {
		parsed, err := decimal.NewFromString(rate)
		if err != nil || !parsed.IsPositive() {
			return nil, fmt.Errorf("FC_EXCHANGE_RATE must be a positive decimal, got %q", rate)
		}
		config.FCExchangeRate = parsed
	}
	if size := os.Getenv("MAX_BOOK_SIZE"); size != "" {
		if parsed, err := strconv.ParseInt(size, 10, 64); err == nil && parsed > 0 {
			config.MaxBookSize = parsed
		}
	}
	if pageSize := os.Getenv("LIST_PAGE_SIZE"); pageSize != "" {
		if parsed, err := strconv.Atoi(pageSize); err == nil && parsed > 0 {
			config.ListPageSize = parsed
		}
	}
	if retries := os.Getenv("TX_MAX_RETRIES"); retries != "" {
		if parsed, err := strconv.Atoi(retries); err == nil && parsed >= 0 {
			config.TxMaxRetries = parsed
		}
	}
	if interval := os.Getenv("OTEL_METRIC_EXPORT_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.MetricsInterval = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:     "test",
		HTTPAddr:        ":0",
		ReferralBonusFC: 100,
		FCExchangeRate:  decimal.NewFromInt(1),
		MaxBookSize:     100000,
		ListPageSize:    50,
		TxMaxRetries:    3,
		MetricsExporter: "none",
		ServiceName:     "fortune-test",
		LogLevel:        "debug",
	}
}
