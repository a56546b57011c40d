package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultSecret = "dev-secret-change-me"

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config describes all runtime settings for the server.
// Loaded once in main, validated, then passed down explicitly.
type Config struct {
	Env     string // dev|stage|prod
	Storage string // postgres|memory

	Log struct {
		Format string // text|json
	}

	HTTP struct {
		Addr              string
		ReadHeaderTimeout time.Duration
		ReadTimeout       time.Duration
		WriteTimeout      time.Duration
		IdleTimeout       time.Duration
		ShutdownTimeout   time.Duration
		StaticWeb         bool
	}

	Postgres struct {
		URL           string
		RunMigrations bool
		SeedCatalog   bool
	}

	Redis struct {
		Addr     string
		DB       int
		RoundTTL time.Duration
	}

	Auth struct {
		Secret   string
		TokenTTL time.Duration
	}

	Game struct {
		RoundDuration time.Duration
		RoundGrace    time.Duration
	}
}

// LoadFromEnv reads the process environment. A .env file in the working
// directory, when present, fills variables that are not already set.
func LoadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var c Config

	c.Env = envString("APP_ENV", "dev")
	c.Storage = envString("STORAGE", StoragePostgres)
	c.Log.Format = envString("LOG_FORMAT", "text")

	port := envString("PORT", "8080")
	c.HTTP.Addr = envString("HTTP_ADDR", ":"+port)
	c.HTTP.ReadHeaderTimeout = envDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second)
	c.HTTP.ReadTimeout = envDuration("HTTP_READ_TIMEOUT", 0)
	c.HTTP.WriteTimeout = envDuration("HTTP_WRITE_TIMEOUT", 0)
	c.HTTP.IdleTimeout = envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	c.HTTP.ShutdownTimeout = envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	c.HTTP.StaticWeb = envBool("STATIC_WEB", true)

	c.Postgres.URL = envString("DATABASE_URL", "postgres://sh:sh@localhost:5432/sh?sslmode=disable")
	c.Postgres.RunMigrations = envBool("RUN_MIGRATIONS", false)
	c.Postgres.SeedCatalog = envBool("SEED_CATALOG", false)

	c.Redis.Addr = envString("REDIS_ADDR", "localhost:6379")
	c.Redis.DB = envInt("REDIS_DB", 0)
	c.Redis.RoundTTL = envDuration("ROUND_TTL", 10*time.Minute)

	c.Auth.Secret = envString("JWT_SECRET", defaultSecret)
	c.Auth.TokenTTL = envDuration("JWT_TTL", 24*time.Hour)

	c.Game.RoundDuration = envDuration("ROUND_DURATION", 30*time.Second)
	c.Game.RoundGrace = envDuration("ROUND_GRACE", 2*time.Second)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("HTTP addr is empty")
	}
	switch c.Storage {
	case StoragePostgres:
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL is empty")
		}
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR is empty")
		}
		if c.Redis.RoundTTL < c.Game.RoundDuration+c.Game.RoundGrace {
			return fmt.Errorf("ROUND_TTL=%s is shorter than one round", c.Redis.RoundTTL)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported STORAGE=%q (want postgres|memory)", c.Storage)
	}
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET is empty")
	}
	if c.Env != "dev" && c.Auth.Secret == defaultSecret {
		return fmt.Errorf("refuse to run with default JWT_SECRET in %s", c.Env)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT=%q (want text|json)", c.Log.Format)
	}
	if c.Game.RoundDuration < 0 || c.Game.RoundGrace < 0 {
		return errors.New("ROUND_DURATION and ROUND_GRACE must not be negative")
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
