package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/app"
	"github.com/scrollkit/cardfeed/internal/feed"
	"github.com/scrollkit/cardfeed/internal/warmer"
	"github.com/scrollkit/cardfeed/pkg/config"
	"github.com/scrollkit/cardfeed/pkg/logging"
	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting cardfeed cache warmer")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	service, err := app.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := warmer.New(service.Feed, feed.TrendingTopics, cfg.Warmer.Interval)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Cache warmer failed", zap.Error(err))
	}

	logger.Info("Cache warmer exited")
}
