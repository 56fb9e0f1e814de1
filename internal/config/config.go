package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/tomorrow-pipeline/internal/logger"
	"github.com/i474232898/tomorrow-pipeline/internal/weather"
)

var validate = validator.New()

// AppConfig holds all runtime configuration, loaded from the environment.
type AppConfig struct {
	// Tomorrow.io API.
	TomorrowAPIKey     string `validate:"required"`
	TomorrowAPIBaseURL string `validate:"required,url"`
	APITimeout         time.Duration
	APIMaxRetries      int `validate:"min=1,max=10"`
	APIRetryDelay      time.Duration

	// PostgreSQL.
	PGHost     string `validate:"required"`
	PGPort     int    `validate:"min=1,max=65535"`
	PGDatabase string `validate:"required"`
	PGUser     string `validate:"required"`
	PGPassword string `validate:"required"`
	PGPoolSize int    `validate:"min=1,max=50"`

	// Pipeline.
	FetchInterval   time.Duration
	DataGranularity weather.Granularity `validate:"oneof=minutely hourly daily"`

	// HTTP API.
	Port string
}

// DatabaseURL builds the PostgreSQL connection URL.
func (c *AppConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Get().Debugw("no_dotenv_file", "error", err)
	}

	cfg := &AppConfig{
		TomorrowAPIKey:     os.Getenv("TOMORROW_API_KEY"),
		TomorrowAPIBaseURL: getenvDefault("TOMORROW_API_BASE_URL", "https://api.tomorrow.io/v4"),
		APIMaxRetries:      getenvInt("TOMORROW_API_MAX_RETRIES", 3),

		PGHost:     getenvDefault("PGHOST", "localhost"),
		PGPort:     getenvInt("PGPORT", 5432),
		PGDatabase: getenvDefault("PGDATABASE", "tomorrow"),
		PGUser:     getenvDefault("PGUSER", "postgres"),
		PGPassword: os.Getenv("PGPASSWORD"),
		PGPoolSize: getenvInt("PG_POOL_SIZE", 5),

		DataGranularity: weather.Granularity(getenvDefault("DATA_GRANULARITY", "hourly")),

		Port: getenvDefault("PORT", "8080"),
	}

	timeout, err := time.ParseDuration(getenvDefault("TOMORROW_API_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOMORROW_API_TIMEOUT: %w", err)
	}
	cfg.APITimeout = timeout

	retryDelay, err := time.ParseDuration(getenvDefault("TOMORROW_API_RETRY_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOMORROW_API_RETRY_DELAY: %w", err)
	}
	cfg.APIRetryDelay = retryDelay

	interval, err := time.ParseDuration(getenvDefault("FETCH_INTERVAL", "60m"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
