package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Items    ItemsConfig
	Images   ImagesConfig
	Steam    SteamConfig
	Currency CurrencyConfig
	Cache    CacheConfig
	Schedule ScheduleConfig
	Log      LogConfig
	CORS     CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// ItemsConfig locates the read-only item fixture
type ItemsConfig struct {
	Path string
}

// ImagesConfig locates the durable image directory and the URL prefix it is served under
type ImagesConfig struct {
	Dir       string
	URLPrefix string
}

// SteamConfig holds upstream market settings
type SteamConfig struct {
	BaseURL          string
	AppID            string
	Currency         string        // Steam numeric currency id used for price lookups
	ListingCurrency  string        // ISO code of prices embedded in listing documents
	Timeout          time.Duration // bound on every upstream call
	FetchConcurrency int           // max concurrent per-item upstream calls
}

// CurrencyConfig holds the settlement currency and the fixed conversion table
type CurrencyConfig struct {
	Settlement string
	Rates      map[string]decimal.Decimal
}

// CacheConfig holds the freshness windows of the in-memory caches
type CacheConfig struct {
	PriceTTL         time.Duration
	ListingTTL       time.Duration
	ImageTTL         time.Duration
	ImageNegativeTTL time.Duration
}

// ScheduleConfig holds cron specs for the periodic jobs. Empty disables a job.
type ScheduleConfig struct {
	Snapshot string
	History  string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "3000"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/portfolio.db"),
		},
		Items: ItemsConfig{
			Path: getEnv("ITEMS_PATH", "./data/items.yaml"),
		},
		Images: ImagesConfig{
			Dir:       getEnv("IMAGE_CACHE_DIR", "./cached_images"),
			URLPrefix: getEnv("IMAGE_URL_PREFIX", "/cached_images"),
		},
		Steam: SteamConfig{
			BaseURL:         getEnv("STEAM_BASE_URL", "https://steamcommunity.com"),
			AppID:           getEnv("STEAM_APP_ID", "730"),
			Currency:        getEnv("STEAM_CURRENCY", "3"),
			ListingCurrency: strings.ToUpper(getEnv("STEAM_LISTING_CURRENCY", "EUR")),
		},
		Currency: CurrencyConfig{
			Settlement: strings.ToUpper(getEnv("SETTLEMENT_CURRENCY", "EUR")),
		},
		Schedule: ScheduleConfig{
			Snapshot: getEnv("SNAPSHOT_SCHEDULE", "@every 15m"),
			History:  getEnv("HISTORY_SCHEDULE", "@every 6h"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
	}

	var err error
	if config.Steam.Timeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if config.Steam.FetchConcurrency, err = getInt("FETCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if config.Cache.PriceTTL, err = getDuration("PRICE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if config.Cache.ListingTTL, err = getDuration("LISTING_CACHE_TTL", 6*time.Hour); err != nil {
		return nil, err
	}
	if config.Cache.ImageTTL, err = getDuration("IMAGE_CACHE_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if config.Cache.ImageNegativeTTL, err = getDuration("IMAGE_NEGATIVE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if config.Currency.Rates, err = ParseRates(getEnv("CURRENCY_RATES", "USD=0.92,GBP=1.17")); err != nil {
		return nil, err
	}
	for _, spec := range []string{config.Schedule.Snapshot, config.Schedule.History} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// ParseRates parses "USD=0.92,GBP=1.17" into a rate table keyed by
// upper-case currency code.
func ParseRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range splitList(raw) {
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid currency rate %q: expected CODE=RATE", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid currency rate %q: %w", pair, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("invalid currency rate %q: must be positive", pair)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return rates, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, value)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
