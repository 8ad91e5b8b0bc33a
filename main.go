package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"goedm/adapters/api"
	"goedm/adapters/stats/engine"
	"goedm/internal"
	"goedm/internal/config"
	"goedm/internal/metrics"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	var registry *metrics.Registry
	if appConfig.Metrics.Enabled {
		registry = metrics.NewRegistry()
	}

	e := engine.New(
		engine.WithWorkers(appConfig.Engine.ResolvedWorkers()),
		engine.WithLogger(logger),
		engine.WithMetrics(registry),
	)
	logger.Info("EDM engine ready: %s", e.RuntimeConfig())

	server := api.NewServer(api.NewService(e, appConfig.Engine), appConfig.Server, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed: %v", err)
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
