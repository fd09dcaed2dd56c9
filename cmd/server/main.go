package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tilbudsradar/backend/config"
	httpDelivery "github.com/tilbudsradar/backend/internal/delivery/http"
	"github.com/tilbudsradar/backend/internal/app"
	"github.com/tilbudsradar/backend/internal/observability"
	"github.com/tilbudsradar/backend/internal/scheduler"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "tilbudsradar-api",
	})

	logger.Info().
		Str("version", httpDelivery.Version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("Starting Tilbudsradar backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to assemble services")
	}
	defer services.Close()

	if cfg.Schedule.Cron != "" {
		sched, err := scheduler.New(cfg.Schedule.Cron, services.Runs, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create scheduler")
		}
		if err := sched.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start scheduler")
		}
		defer sched.Stop()
	}

	handler := httpDelivery.NewHandler(services.Matcher, services.Runs, services.Store, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("Server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Server failed")
		return
	}

	logger.Info().Msg("Server stopped")
}
