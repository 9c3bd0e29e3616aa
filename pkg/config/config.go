// Package config loads runtime settings from an optional YAML file, a .env
// file and FOOTPRINT_* environment variables, in that order of precedence
// (environment wins).
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment key
const EnvPrefix = "FOOTPRINT"

// Config holds settings shared by the binaries
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" yaml:"log_level"`
	LogPretty   bool   `envconfig:"LOG_PRETTY" yaml:"log_pretty"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" yaml:"http_addr"`
	Source      string `envconfig:"SOURCE" yaml:"source"` // CSV path, sheet URL or .parquet file
	DuckDBPath  string `envconfig:"DUCKDB" yaml:"duckdb"`
	NATSURL     string `envconfig:"NATS_URL" yaml:"nats_url"`
	Concurrency int    `envconfig:"CONCURRENCY" yaml:"concurrency"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		HTTPAddr:    ":5000",
		NATSURL:     "nats://localhost:4222",
		Concurrency: 4,
	}
}

// Load builds a Config. path names an optional YAML file; pass "" to skip it.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	// PORT is the platform convention; FOOTPRINT_HTTP_ADDR still wins
	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}
