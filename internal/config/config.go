package config

import (
	"fmt"
	"os"
	"strconv"
)

const defaultSiteName = "سينما أونلاين"

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port                 string
	SiteName             string
	DBURL                string
	SessionSecret        string
	SessionTTLMins       int
	ReadTimeoutSecs      int
	WriteTimeoutSecs     int
	IdleTimeoutSecs      int
	DBMaxConns           int
	DBMinConns           int
	DBMaxIdleSecs        int
	DBMaxLifeSecs        int
	DBConnTimeoutSecs    int
	DBStatementCache     int
	LinkCheckTimeoutSecs int
	LogLevel             string
	SentryDSN            string
	Environment          string
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	cfg := LoadDatabase()
	cfg.Port = getEnv("PORT", "8080")
	cfg.SiteName = getEnv("SITE_NAME", defaultSiteName)
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.SessionTTLMins = getEnvInt("SESSION_TTL_MINS", 720)
	cfg.ReadTimeoutSecs = getEnvInt("SERVER_READ_TIMEOUT", 15)
	cfg.WriteTimeoutSecs = getEnvInt("SERVER_WRITE_TIMEOUT", 15)
	cfg.IdleTimeoutSecs = getEnvInt("SERVER_IDLE_TIMEOUT", 60)
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")
	cfg.Environment = getEnv("CINEMA_ENV", "development")

	if err := cfg.validateDatabase(); err != nil {
		return Config{}, err
	}
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < 16 {
		return Config{}, fmt.Errorf("SESSION_SECRET must be at least 16 bytes")
	}
	if cfg.SessionTTLMins <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_MINS must be positive")
	}

	return cfg, nil
}

// LoadDatabase reads only the settings tooling needs to reach the catalog database.
// Callers that go on to serve HTTP should use Load instead.
func LoadDatabase() Config {
	return Config{
		DBURL:                os.Getenv("DB_URL"),
		DBMaxConns:           getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:           getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:        getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:        getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs:    getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:     getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		LinkCheckTimeoutSecs: getEnvInt("LINKCHECK_TIMEOUT_SECS", 5),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

// ValidateDatabase checks the subset filled by LoadDatabase.
func (c Config) ValidateDatabase() error {
	return c.validateDatabase()
}

func (c Config) validateDatabase() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if c.LinkCheckTimeoutSecs <= 0 {
		return fmt.Errorf("LINKCHECK_TIMEOUT_SECS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
