/*
config.go - Process configuration

PURPOSE:
  One place to resolve everything the server needs to start: listen address,
  database path, CORS origins, log level. Everything else in the process takes
  plain values; nothing below this package reads the environment.

PRECEDENCE (low -> high):
  1. Defaults (Default())
  2. YAML file, if SCHED_CONFIG points at one
  3. Environment variables with the SCHED_ prefix
     (SCHED_ADDR, SCHED_DB_PATH, SCHED_LOG_LEVEL, ...)

SEE ALSO:
  - cmd/server/main.go: the only consumer
*/
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SCHED_"

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. ":memory:" is accepted for dev.
	DBPath string `koanf:"db_path"`

	// CORSOrigins lists the allowed origins for the API.
	CORSOrigins []string `koanf:"cors_origins"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// SeedDemo loads the demo scenario into a fresh database on startup.
	SeedDemo bool `koanf:"seed_demo"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Addr:        ":8080",
		DBPath:      "schedule.db",
		CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		LogLevel:    "info",
		SeedDemo:    false,
	}
}

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables.
func Load() (*Config, error) {
	cfg := *Default()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// SCHED_DB_PATH -> db_path, matching the koanf tags on the struct.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path must not be empty")
	}
	return &cfg, nil
}
