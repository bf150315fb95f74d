package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const DefaultJWTSecret = "change-me"

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	StoreDriver string     `env:"STORE_DRIVER" envDefault:"sqlite"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/questboard.db"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"change-me"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"72h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	RedisURL       string        `env:"REDIS_URL"`
	LeaderboardTTL time.Duration `env:"LEADERBOARD_TTL" envDefault:"30s"`

	// QuestURL is the external quest site. Empty means players get the
	// built-in placeholder quest.
	QuestURL string `env:"QUEST_URL"`
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`
	SeedDemo bool   `env:"SEED_DEMO" envDefault:"false"`
}

// Load reads an optional .env file, then the environment.
func Load(dotenv ...string) (*Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER must be sqlite or memory, got %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location is where session start dates and times are interpreted.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
