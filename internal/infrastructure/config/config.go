package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Engine
	AllowDepositOnLocked bool   `env:"ALLOW_DEPOSIT_ON_LOCKED" envDefault:"true"`
	SnapshotOrder        string `env:"SNAPSHOT_ORDER"          envDefault:"ascending"`
	StrictInput          bool   `env:"STRICT_INPUT"            envDefault:"false"`

	// Output
	OutputFormat    string `env:"OUTPUT_FORMAT"    envDefault:"csv"`
	MetricsTextfile string `env:"METRICS_TEXTFILE"`

	// Database (optional - leave empty to disable the postgres sink)
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"5"`
	DatabaseMinConns int    `env:"DATABASE_MIN_CONNS" envDefault:"1"`

	// Redis (optional - leave empty to disable the redis sink)
	RedisURL    string        `env:"REDIS_URL"`
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"24h"`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"50"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.OutputFormat {
	case "csv", "json":
	default:
		return fmt.Errorf("invalid OUTPUT_FORMAT %q: want csv or json", c.OutputFormat)
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want console or json", c.LogFormat)
	}

	if c.DatabaseMinConns > c.DatabaseMaxConns {
		return fmt.Errorf("DATABASE_MIN_CONNS (%d) exceeds DATABASE_MAX_CONNS (%d)", c.DatabaseMinConns, c.DatabaseMaxConns)
	}

	return nil
}
