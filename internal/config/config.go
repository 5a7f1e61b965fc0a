package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the server configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LogLevel    string            `yaml:"log_level"`
	Storage     StorageConfig     `yaml:"storage"`
	NATSURL     string            `yaml:"nats_url"`
	Matchmaking MatchmakingConfig `yaml:"matchmaking"`
	Users       UsersConfig       `yaml:"users"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type        string `yaml:"type"`
	RedisURL    string `yaml:"redis_url"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
	Migrate     bool   `yaml:"migrate"`
}

// MatchmakingConfig holds the matchmaking, acceptance and penalty settings
type MatchmakingConfig struct {
	// MaxRatingDifference of -1 matches regardless of rating
	MaxRatingDifference      int `yaml:"max_rating_difference"`
	AcceptSeconds            int `yaml:"accept_seconds"`
	PenaltyBaseSeconds       int `yaml:"penalty_base_seconds"`
	PenaltySecondsPerDecline int `yaml:"penalty_seconds_per_decline"`
}

// UsersConfig holds account session settings
type UsersConfig struct {
	SessionDuration time.Duration `yaml:"session_duration"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		LogLevel: "info",
		Storage: StorageConfig{
			Type:       StorageMemory,
			SQLitePath: "chessmatch.db",
			Migrate:    true,
		},
		Matchmaking: MatchmakingConfig{
			MaxRatingDifference:      -1,
			AcceptSeconds:            20,
			PenaltyBaseSeconds:       0,
			PenaltySecondsPerDecline: 60,
		},
		Users: UsersConfig{
			SessionDuration: 24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("HOST", &c.Server.Host)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("STORAGE_TYPE", &c.Storage.Type)
	setString("REDIS_URL", &c.Storage.RedisURL)
	setString("SQLITE_PATH", &c.Storage.SQLitePath)
	setString("DATABASE_URL", &c.Storage.DatabaseURL)
	setString("NATS_URL", &c.NATSURL)

	return errors.Join(
		setInt("PORT", &c.Server.Port),
		setInt("MAX_RATING_DIFFERENCE", &c.Matchmaking.MaxRatingDifference),
		setInt("ACCEPT_SECONDS", &c.Matchmaking.AcceptSeconds),
		setInt("PENALTY_BASE_SECONDS", &c.Matchmaking.PenaltyBaseSeconds),
		setInt("PENALTY_SECONDS_PER_DECLINE", &c.Matchmaking.PenaltySecondsPerDecline),
	)
}

// Validate checks that the selected backend has what it needs to connect
func (c Config) Validate() error {
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("SQLITE_PATH required when STORAGE_TYPE=sqlite")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("invalid storage type %q", c.Storage.Type)
	}

	if c.Matchmaking.AcceptSeconds <= 0 {
		return errors.New("accept_seconds must be positive")
	}
	if c.Matchmaking.PenaltyBaseSeconds < 0 || c.Matchmaking.PenaltySecondsPerDecline < 0 {
		return errors.New("penalty durations must not be negative")
	}
	return nil
}

// Addr returns the HTTP listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Level parses LogLevel, falling back to info
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
