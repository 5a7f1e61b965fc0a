package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/chessmatch/internal/config"
	"github.com/mcoot/chessmatch/internal/dependencies/clock"
	"github.com/mcoot/chessmatch/internal/dependencies/random"
	"github.com/mcoot/chessmatch/internal/dependencies/ticker"
	"github.com/mcoot/chessmatch/internal/events"
	"github.com/mcoot/chessmatch/internal/services/gateway"
	"github.com/mcoot/chessmatch/internal/services/matchmaking"
	"github.com/mcoot/chessmatch/internal/services/penalty"
	"github.com/mcoot/chessmatch/internal/services/session"
	"github.com/mcoot/chessmatch/internal/services/users"
	"github.com/mcoot/chessmatch/internal/storage"
	"github.com/mcoot/chessmatch/internal/storage/memory"
	postgresstorage "github.com/mcoot/chessmatch/internal/storage/postgres"
	redisstorage "github.com/mcoot/chessmatch/internal/storage/redis"
	sqlitestorage "github.com/mcoot/chessmatch/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageMemory
	StorageTypeRedis    = config.StorageRedis
	StorageTypeSQLite   = config.StorageSQLite
	StorageTypePostgres = config.StoragePostgres
)

// sessionCleanupInterval is how often expired login sessions are dropped
const sessionCleanupInterval = 10 * time.Minute

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Scheduler ticker.Scheduler
	Publisher events.Publisher

	// Services
	Users   *users.Service
	Gateway *gateway.Gateway

	cleanup ticker.Task
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend
	// If empty, defaults to "memory"
	StorageType string
	// Backend settings, required for the matching StorageType
	RedisConfig    *redisstorage.Config
	SQLiteConfig   *sqlitestorage.Config
	PostgresConfig *postgresstorage.Config
	// NATSURL enables finished-game events when set
	NATSURL string
	// UsersConfig holds configuration for the users service (optional)
	UsersConfig users.Config
	// GatewayConfig holds matchmaking settings (optional)
	// If nil, defaults to gateway.DefaultConfig()
	GatewayConfig *gateway.Config
}

// FromConfig translates the server configuration into a factory Config
func FromConfig(c config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:      logger,
		StorageType: c.Storage.Type,
		NATSURL:     c.NATSURL,
		UsersConfig: users.Config{SessionDuration: c.Users.SessionDuration},
		GatewayConfig: &gateway.Config{
			Matchmaking: matchmaking.Config{MaxRatingDifference: c.Matchmaking.MaxRatingDifference},
			Session:     session.Config{AcceptSeconds: c.Matchmaking.AcceptSeconds},
			Penalty: penalty.Config{
				BaseSeconds:       c.Matchmaking.PenaltyBaseSeconds,
				SecondsPerDecline: c.Matchmaking.PenaltySecondsPerDecline,
			},
		},
	}

	switch c.Storage.Type {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.Storage.RedisURL
		cfg.RedisConfig = &redisCfg
	case StorageTypeSQLite:
		sqliteCfg := sqlitestorage.DefaultConfig()
		sqliteCfg.Path = c.Storage.SQLitePath
		cfg.SQLiteConfig = &sqliteCfg
	case StorageTypePostgres:
		pgCfg := postgresstorage.DefaultConfig()
		pgCfg.URL = c.Storage.DatabaseURL
		pgCfg.Migrate = c.Storage.Migrate
		cfg.PostgresConfig = &pgCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.Connect(cfg.NATSURL, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		publisher = natsPublisher
	}

	gatewayCfg := gateway.DefaultConfig()
	if cfg.GatewayConfig != nil {
		gatewayCfg = *cfg.GatewayConfig
	}

	return newWithDependencies(store, publisher, clock.New(), random.New(), ticker.New(), cfg.UsersConfig, gatewayCfg, logger), nil
}

func newStorage(ctx context.Context, cfg Config, logger *slog.Logger) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeSQLite:
		if cfg.SQLiteConfig == nil {
			return nil, errors.New("SQLiteConfig required when StorageType is sqlite")
		}
		return sqlitestorage.New(ctx, *cfg.SQLiteConfig)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		return postgresstorage.New(ctx, *cfg.PostgresConfig, logger)
	default:
		return nil, fmt.Errorf("invalid StorageType %q", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	publisher events.Publisher,
	clk clock.Clock,
	rnd random.Random,
	scheduler ticker.Scheduler,
	usersCfg users.Config,
	gatewayCfg gateway.Config,
	logger *slog.Logger,
) *App {
	usersService := users.New(store, clk, usersCfg)
	gw := gateway.New(gatewayCfg, gateway.Deps{
		Ratings:   store,
		History:   store,
		Publisher: publisher,
		Clock:     clk,
		Random:    rnd,
		Scheduler: scheduler,
		Logger:    logger,
	})

	return &App{
		Storage:   store,
		Clock:     clk,
		Random:    rnd,
		Scheduler: scheduler,
		Publisher: publisher,
		Users:     usersService,
		Gateway:   gw,
		cleanup:   scheduler.Every(sessionCleanupInterval, usersService.CleanExpiredSessions),
	}
}

// Close stops background work and releases external connections
func (a *App) Close() error {
	a.cleanup.Stop()
	a.Gateway.Shutdown()
	a.Publisher.Close()
	return a.Storage.Close()
}
