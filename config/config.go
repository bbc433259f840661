package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"listingscout/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Target site configuration
	BaseURL string

	// Browser session configuration
	Headless   bool
	Stealth    bool
	BrowserBin string
	PageWait   time.Duration

	// Ranking configuration
	TolerancePercent float64

	// Watch worker configuration
	WatchQueries   []string
	WatchPages     int
	ScrapeInterval time.Duration
	SeenTTL        time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStreamPrefix    string
	RedisStreamCount     int
	RedisStreamMaxLength int64

	// Memcache configuration
	MemcacheAddr string
	ResultTTL    time.Duration

	// Postgres configuration, empty DSN disables the store
	PostgresDSN string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		BaseURL:              getEnv("OLX_BASE_URL", "https://www.olx.in"),
		Headless:             getEnvBool("SCRAPER_HEADLESS", true),
		Stealth:              getEnvBool("SCRAPER_STEALTH", false),
		BrowserBin:           getEnv("BROWSER_BIN", ""),
		PageWait:             getEnvSeconds("PAGE_WAIT_SECONDS", 3),
		TolerancePercent:     getEnvFloat("TOLERANCE_PERCENT", 20),
		WatchQueries:         splitList(getEnv("WATCH_QUERIES", "")),
		WatchPages:           getEnvInt("WATCH_PAGES", 2),
		ScrapeInterval:       getEnvSeconds("SCRAPE_INTERVAL_SECONDS", 900),
		SeenTTL:              getEnvSeconds("SEEN_TTL_SECONDS", 86400),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStreamPrefix:    getEnv("REDIS_STREAM_PREFIX", "listings"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: int64(getEnvInt("REDIS_STREAM_MAX_LENGTH", 500)),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		ResultTTL:            getEnvSeconds("RESULT_TTL_SECONDS", 600),
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		Environment:          getEnv("SCOUT_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfiguration("base URL must not be empty", nil)
	}
	if c.WatchPages < 1 {
		return errors.NewConfiguration("watch pages must be at least 1", nil)
	}
	if c.ScrapeInterval <= 0 {
		return errors.NewConfiguration("scrape interval must be positive", nil)
	}
	if c.RedisStreamCount < 1 {
		return errors.NewConfiguration("redis stream count must be at least 1", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvFloat retrieves a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvSeconds retrieves a duration environment variable expressed in seconds
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

// splitList splits a comma-separated environment value into trimmed entries
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var entries []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			entries = append(entries, part)
		}
	}
	return entries
}
