package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hypogate/internal"
	"hypogate/internal/api"
	"hypogate/internal/config"
	"hypogate/internal/container"
)

const SHUTDOWN_TIMEOUT = 30 * time.Second

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		internal.NewDefaultLogger().Debug("no .env file loaded: %v", err)
	}

	appConfig, err := config.Load()
	if err != nil {
		internal.NewDefaultLogger().Error("failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger := internal.NewLoggerWithFormat(internal.ParseLogLevel(appConfig.LogLevel), appConfig.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appConfig, logger); err != nil {
		logger.Error("hypogate stopped: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appConfig *config.Config, logger *internal.Logger) error {
	c, err := container.New(appConfig, logger)
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}

	c.Dispatcher.StartWorkerPool(appConfig.Engine.MaxConcurrent)
	go api.ForwardResults(ctx, c.Dispatcher.Results(), c.Hub)
	resumePending(ctx, c, logger)

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           c.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("hypogate listening on %s (store %s, max %d concurrent experiments)",
			server.Addr, appConfig.Database.Driver, appConfig.Engine.MaxConcurrent)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			c.Close(SHUTDOWN_TIMEOUT)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown: %v", err)
	}
	return c.Close(SHUTDOWN_TIMEOUT)
}

// resumePending settles experiments left non-terminal by a previous process
// and queues the pending ones, e.g. records imported by cmd/migrate.
func resumePending(ctx context.Context, c *container.Container, logger *internal.Logger) {
	pending, err := c.Orchestrator.Recover(ctx)
	if err != nil {
		logger.Warn("failed to recover interrupted experiments: %v", err)
	}
	for _, id := range pending {
		if err := c.Dispatcher.Enqueue(id); err != nil {
			logger.Warn("experiment %s not resumed: %v", id, err)
		}
	}
	if len(pending) > 0 {
		logger.Info("resumed %d pending experiments", len(pending))
	}
}
