package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Postgres struct {
		Host            string `env:"POSTGRES_HOST" envDefault:"localhost"`
		Port            int    `env:"POSTGRES_PORT" envDefault:"5432"`
		User            string `env:"POSTGRES_USER" envDefault:"postgres"`
		Password        string `env:"POSTGRES_PASSWORD" envDefault:""`
		Database        string `env:"POSTGRES_DB" envDefault:"raffle"`
		SSLMode         string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
		MaxOpenConns    int    `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int    `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
		ConnMaxLifetime int    `env:"POSTGRES_CONN_MAX_LIFETIME_SEC" envDefault:"300"`
	}

	Redis struct {
		// URL takes precedence when set (redis:// or rediss://).
		URL      string `env:"REDIS_URL" envDefault:""`
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Raffle struct {
		// Master credential for the administrator role, supplied via environment,
		// never hardcoded.
		AdminPIN string `env:"ADMIN_PIN,required"`

		// Board size used when the tickets table is empty on first run.
		DefaultTicketCount int `env:"DEFAULT_TICKET_COUNT" envDefault:"100"`
	}
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password,
		c.Postgres.Database, c.Postgres.SSLMode)
}

func Load() (*Config, error) {
	// Missing .env is fine, variables may be set directly in the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}
