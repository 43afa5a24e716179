// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Config holds application settings. Everything comes from the environment,
// optionally seeded from a .env file.
type Config struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	DataDir      string        `env:"DATA_DIR" envDefault:"data"`
	StaticDir    string        `env:"STATIC_DIR" envDefault:"static"`
	LogDir       string        `env:"LOG_DIR" envDefault:"logs"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	DebugMode    bool          `env:"DEBUG_MODE" envDefault:"false"`
	Storage      string        `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	DatabasePath string        `env:"DATABASE_PATH"`
	AuthSecret   string        `env:"AUTH_SECRET_KEY"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	RateLimit    int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

// Load reads an optional .env file and parses the environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case DriverSQLite, DriverFile:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage)
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "novels.db")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

// EnsureDirs creates the data and log directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
