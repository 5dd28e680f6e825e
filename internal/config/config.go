package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime settings, read from the environment.
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	PGHost     string `env:"PG_HOST" envDefault:"localhost"`
	PGPort     string `env:"PG_PORT" envDefault:"5432"`
	PGUser     string `env:"PG_USER" envDefault:"postgres"`
	PGDB       string `env:"PG_DB" envDefault:"rosca"`
	PGPassword string `env:"PG_PASSWORD"`

	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	JWTSecret string `env:"JWT_SECRET"`

	// Empty means: resolve once to the earliest-created admin.
	FeeRecipientUserID string `env:"FEE_RECIPIENT_USER_ID"`

	CycleJobEnabled     bool          `env:"CYCLE_JOB_ENABLED" envDefault:"false"`
	CycleJobInterval    time.Duration `env:"CYCLE_JOB_INTERVAL" envDefault:"24h"`
	CycleJobConcurrency int           `env:"CYCLE_JOB_CONCURRENCY" envDefault:"4"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CycleJobConcurrency < 1 {
		cfg.CycleJobConcurrency = 1
	}
	return &cfg, nil
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
