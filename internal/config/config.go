// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// SnowflakeDSNPrefix is the environment prefix for warehouse credentials.
// Each SNOWFLAKE_DSN_<REF> variable registers a credential ref named <ref>
// (lowercased) whose value is a gosnowflake DSN.
const SnowflakeDSNPrefix = "SNOWFLAKE_DSN_"

// Config holds configuration for the cache service.
type Config struct {
	MetaDBPath   string // path to SQLite metadata file (control plane)
	DuckDBPath   string // path to local DuckDB file (cache plane); empty means in-memory
	LocalCatalog string // catalog name cached tables live under (default "ducksync")
	ListenAddr   string // HTTP listen address (default ":8080")
	LogLevel     string // log level: debug, info, warn, error (default "info")
	Env          string // environment: "development" (default) or "production"

	// DuckLake attachment is optional; when PostgresDSN is set the cache
	// plane attaches a DuckLake catalog instead of a plain DuckDB file.
	DuckLakePostgresDSN string
	DuckLakeDataPath    string

	// CleanupSchedule is a cron expression for periodic lake maintenance.
	// Empty disables the scheduler.
	CleanupSchedule string

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// SnowflakeDSNs maps credential refs to gosnowflake DSNs, collected
	// from SNOWFLAKE_DSN_<REF> environment variables.
	SnowflakeDSNs map[string]string

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:          os.Getenv("META_DB_PATH"),
		DuckDBPath:          os.Getenv("DUCKDB_PATH"),
		LocalCatalog:        os.Getenv("LOCAL_CATALOG"),
		ListenAddr:          os.Getenv("LISTEN_ADDR"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		Env:                 os.Getenv("ENV"),
		DuckLakePostgresDSN: os.Getenv("DUCKLAKE_POSTGRES_DSN"),
		DuckLakeDataPath:    os.Getenv("DUCKLAKE_DATA_PATH"),
		CleanupSchedule:     os.Getenv("CLEANUP_SCHEDULE"),
		SnowflakeDSNs:       map[string]string{},
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// Warehouse credentials
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, SnowflakeDSNPrefix) {
			continue
		}
		ref := strings.ToLower(strings.TrimPrefix(key, SnowflakeDSNPrefix))
		if ref == "" || value == "" {
			continue
		}
		cfg.SnowflakeDSNs[ref] = value
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "ducksync_meta.sqlite"
	}
	if cfg.LocalCatalog == "" {
		cfg.LocalCatalog = "ducksync"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if (cfg.DuckLakePostgresDSN == "") != (cfg.DuckLakeDataPath == "") {
		return nil, fmt.Errorf("both DUCKLAKE_POSTGRES_DSN and DUCKLAKE_DATA_PATH must be set together")
	}
	if len(cfg.SnowflakeDSNs) == 0 {
		cfg.Warnings = append(cfg.Warnings,
			"no SNOWFLAKE_DSN_<REF> variables set — sources cannot be refreshed until credentials are configured")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.DuckDBPath == "" && cfg.DuckLakePostgresDSN == "" {
			return nil, fmt.Errorf("DUCKDB_PATH must be set in production (ENV=production); in-memory caches do not survive restarts")
		}
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
