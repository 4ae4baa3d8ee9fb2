// Package app assembles the service from configuration.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/api"
	"github.com/scrollkit/cardfeed/internal/auth"
	"github.com/scrollkit/cardfeed/internal/cache"
	"github.com/scrollkit/cardfeed/internal/db"
	"github.com/scrollkit/cardfeed/internal/events"
	"github.com/scrollkit/cardfeed/internal/feed"
	"github.com/scrollkit/cardfeed/internal/interactions"
	"github.com/scrollkit/cardfeed/internal/preference"
	"github.com/scrollkit/cardfeed/internal/providers"
	"github.com/scrollkit/cardfeed/pkg/config"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

// App holds the wired components shared by the server, warmer and CLI
type App struct {
	Config   *config.Config
	DB       *db.DB
	Redis    *cache.RedisStore
	Bus      *events.Bus
	Registry *providers.Registry
	Recorder *interactions.Recorder
	Auth     *auth.Service
	Feed     *feed.Aggregator

	logger *zap.Logger
}

// New opens the database, runs migrations and wires every component. The
// response cache lives in Redis when configured and in the database otherwise.
func New(cfg *config.Config) (*App, error) {
	logger := logging.WithComponent("app")

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	repo := db.NewRepository(database.DB)

	redisStore, err := cache.NewRedisStore(&cfg.Redis)
	if err != nil {
		database.Close()
		return nil, err
	}
	var store cache.Store = cache.NewDBStore(db.NewCacheRepository(repo))
	if redisStore != nil {
		store = redisStore
		logger.Info("Caching provider responses in Redis")
	}
	responses := cache.NewResponseCache(store, cfg.Cache.TTL)

	bus := events.NewBus()
	recorder := interactions.NewRecorder(repo, bus)
	if err := recorder.Start(); err != nil {
		bus.Close()
		redisStore.Close()
		database.Close()
		return nil, fmt.Errorf("starting interaction handlers: %w", err)
	}

	authService := auth.NewService(db.NewProfileRepository(repo), db.NewSessionRepository(repo), bus, cfg.Auth.SessionTTL)
	if err := authService.Subscribe(func(e events.AuthStateChanged) {
		logging.WithUser(logger, e.UserID).Info("Auth state changed", zap.String("event", e.Event))
	}); err != nil {
		logger.Warn("Failed to subscribe to auth events", zap.Error(err))
	}

	registry := providers.FromConfig(&cfg.Providers, responses)
	aggregator := feed.NewAggregator(registry, preference.NewEstimator(recorder.Interactions()), recorder, cfg.Feed)

	return &App{
		Config:   cfg,
		DB:       database,
		Redis:    redisStore,
		Bus:      bus,
		Registry: registry,
		Recorder: recorder,
		Auth:     authService,
		Feed:     aggregator,
		logger:   logger,
	}, nil
}

// Router builds the JSON-RPC router over the wired services
func (a *App) Router() *api.Router {
	return api.NewRouter(api.Services{
		Feed:         a.Feed,
		Interactions: a.Recorder,
		Auth:         a.Auth,
		Checks:       a.HealthChecks(),
	})
}

// HealthChecks names the backing services /health probes
func (a *App) HealthChecks() map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{"database": a.DB}
	if a.Redis != nil {
		checks["redis"] = a.Redis
	}
	return checks
}

// Close releases everything New opened
func (a *App) Close() {
	if err := a.Bus.Close(); err != nil {
		a.logger.Warn("Failed to close event bus", zap.Error(err))
	}
	if err := a.Redis.Close(); err != nil {
		a.logger.Warn("Failed to close Redis", zap.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
}
