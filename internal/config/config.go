// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// AI settings
	GeminiAPIKey        string
	OpenAIAPIKey        string
	MaxOracleRequests   int // daily oracle call budget (0 = unlimited)
	MaxEmbedRequests    int // daily embedding call budget (0 = unlimited)
	MaxTotalAIRequests  int
	SimilarityThreshold float64 // tau for embedding clustering
	MinOriginSpan       int     // distinct origins a shared group must span

	// Collection settings
	OriginsConfigPath string
	Query             string
	RecencyWindow     time.Duration // window for the scoring recency bonus
	CollectWindow     time.Duration // how far back collection reaches

	// Scraper settings
	ScrapeConcurrency int
	ScrapeMaxArticles int

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Cache settings
	CacheDir        string
	DatabaseURL     string // when set, cache records live in Postgres
	CacheTTL        time.Duration
	CacheMaxEntries int
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		OriginsConfigPath:   "configs/origins.yaml",
		Query:               "technology",
		MaxOracleRequests:   50,
		MaxEmbedRequests:    500,
		MaxTotalAIRequests:  1000,
		SimilarityThreshold: 0.75,
		MinOriginSpan:       2,
		RecencyWindow:       7 * 24 * time.Hour,
		CollectWindow:       24 * time.Hour,
		ScrapeConcurrency:   4,
		ScrapeMaxArticles:   10,
		RequestTimeout:      30 * time.Second,
		RetryAttempts:       3,
		RetryDelay:          500 * time.Millisecond,
		CacheDir:            "cache_data",
		CacheTTL:            30 * time.Minute,
		CacheMaxEntries:     1000,
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.OriginsConfigPath = getEnvOrDefault("ORIGINS_CONFIG_PATH", cfg.OriginsConfigPath)
	cfg.Query = getEnvOrDefault("TREND_QUERY", cfg.Query)
	cfg.CacheDir = getEnvOrDefault("CACHE_DIR", cfg.CacheDir)

	cfg.MaxOracleRequests = getEnvIntOrDefault("MAX_ORACLE_REQUESTS", cfg.MaxOracleRequests)
	cfg.MaxEmbedRequests = getEnvIntOrDefault("MAX_EMBED_REQUESTS", cfg.MaxEmbedRequests)
	cfg.MaxTotalAIRequests = getEnvIntOrDefault("MAX_TOTAL_AI_REQUESTS", cfg.MaxTotalAIRequests)
	cfg.ScrapeConcurrency = getEnvIntOrDefault("SCRAPE_CONCURRENCY", cfg.ScrapeConcurrency)
	cfg.ScrapeMaxArticles = getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", cfg.ScrapeMaxArticles)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.CacheMaxEntries = getEnvIntOrDefault("CACHE_MAX_ENTRIES", cfg.CacheMaxEntries)

	if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.CacheTTL = time.Duration(val) * time.Minute
		}
	}
	if v := os.Getenv("RECENCY_WINDOW_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RecencyWindow = time.Duration(val) * time.Hour
		}
	}
	if v := os.Getenv("COLLECT_WINDOW_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.CollectWindow = time.Duration(val) * time.Hour
		}
	}
	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 && val < 1 {
			cfg.SimilarityThreshold = val
		}
	}
	if v := os.Getenv("MIN_ORIGIN_SPAN"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val >= 2 {
			cfg.MinOriginSpan = val
		}
	}

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.SimilarityThreshold < 0.5 || c.SimilarityThreshold > 0.95 {
		return fmt.Errorf("SIMILARITY_THRESHOLD %.2f out of sane range", c.SimilarityThreshold)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive")
	}
	return nil
}
