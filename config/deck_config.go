package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"taskdeck/pkg/apperr"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Todo API
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Cross-tab sync
	RedisURL      string // empty = in-process hub
	RedisPoolSize int
	SyncOrigin    string
	SyncChannel   string // overrides taskdeck:sync:<origin>

	// Timing
	UndoTimeout  time.Duration
	ToastLead    time.Duration
	RemovalDelay time.Duration
	CacheStale   time.Duration

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("TASKDECK_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		// Todo API
		APIBaseURL: getEnv("API_BASE_URL", ""),
		APIToken:   getEnv("API_TOKEN", ""),
		APITimeout: time.Duration(getEnvInt("API_TIMEOUT_SEC", 10)) * time.Second,

		// Cross-tab sync
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		SyncOrigin:    getEnv("SYNC_ORIGIN", "http://localhost:3000"),
		SyncChannel:   getEnv("SYNC_CHANNEL", ""),

		// Timing
		UndoTimeout:  time.Duration(getEnvInt("UNDO_TIMEOUT_MS", 1500)) * time.Millisecond,
		ToastLead:    time.Duration(getEnvInt("TOAST_LEAD_MS", 200)) * time.Millisecond,
		RemovalDelay: time.Duration(getEnvInt("REMOVAL_DELAY_MS", 450)) * time.Millisecond,
		CacheStale:   time.Duration(getEnvInt("CACHE_STALE_SEC", 30)) * time.Second,

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings a tab session cannot start without.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return apperr.ConfigError("API_BASE_URL is required")
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return apperr.ConfigError("API_BASE_URL must be an absolute URL")
	}
	if c.UndoTimeout <= 0 {
		return apperr.ConfigError("UNDO_TIMEOUT_MS must be positive")
	}
	if c.RedisPoolSize <= 0 {
		return apperr.ConfigError("REDIS_POOL_SIZE must be positive")
	}
	if c.ToastLead < 0 || c.RemovalDelay < 0 {
		return apperr.ConfigError("TOAST_LEAD_MS and REMOVAL_DELAY_MS must not be negative")
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
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
