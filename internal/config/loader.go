package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the availability service.
type Config struct {
	HTTPPort        int
	SQLitePath      string
	Timezone        *time.Location
	LogLevel        slog.Level
	LogFormat       string
	ShutdownTimeout time.Duration
	IndexCacheTTL   time.Duration

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

// DefaultEnvFile is read before the process environment when it exists.
const DefaultEnvFile = ".env"

// Load parses configuration values from the current process environment.
//
// Variables from the file named by RESERVATIONS_ENV_FILE (default .env) are
// applied first without overriding variables already set. The loader applies
// defaults for optional fields and reports every missing or invalid entry at
// once.
func Load() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("RESERVATIONS_ENV_FILE"))
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:        8080,
		SQLitePath:      "data/reservations.db",
		Timezone:        time.UTC,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,
		IndexCacheTTL:   30 * time.Second,
		OTelSampleRatio: 1,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, key("HTTP_PORT"))
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := env("SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if tz := env("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, key("TIMEZONE"))
		} else {
			cfg.Timezone = loc
		}
	}

	if levelValue := env("LOG_LEVEL"); levelValue != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, key("LOG_LEVEL"))
		} else {
			cfg.LogLevel = level
		}
	}

	if format := strings.ToLower(env("LOG_FORMAT")); format != "" {
		if format != "json" && format != "text" {
			invalid = append(invalid, key("LOG_FORMAT"))
		} else {
			cfg.LogFormat = format
		}
	}

	if timeoutValue := env("SHUTDOWN_TIMEOUT"); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, key("SHUTDOWN_TIMEOUT"))
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if ttlValue := env("INDEX_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, key("INDEX_CACHE_TTL"))
		} else {
			cfg.IndexCacheTTL = ttl
		}
	}

	if enabledValue := env("OTEL_ENABLED"); enabledValue != "" {
		enabled, err := strconv.ParseBool(enabledValue)
		if err != nil {
			invalid = append(invalid, key("OTEL_ENABLED"))
		} else {
			cfg.OTelEnabled = enabled
		}
	}

	cfg.OTelEndpoint = env("OTEL_ENDPOINT")
	if cfg.OTelEnabled && cfg.OTelEndpoint == "" {
		missing = append(missing, key("OTEL_ENDPOINT"))
	}

	if ratioValue := env("OTEL_SAMPLE_RATIO"); ratioValue != "" {
		ratio, err := strconv.ParseFloat(ratioValue, 64)
		if err != nil || ratio < 0 || ratio > 1 {
			invalid = append(invalid, key("OTEL_SAMPLE_RATIO"))
		} else {
			cfg.OTelSampleRatio = ratio
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

const prefix = "RESERVATIONS_"

func key(name string) string { return prefix + name }

func env(name string) string {
	return strings.TrimSpace(os.Getenv(key(name)))
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
