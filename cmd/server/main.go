package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/recruit/api"
	dbfs "github.com/garnizeh/recruit/db"
	"github.com/garnizeh/recruit/internal/config"
	"github.com/garnizeh/recruit/internal/db"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("starting recruit server", "version", version, "build_time", buildTime)

	ctx := context.Background()

	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		logger.Error("failed to open db", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
			logger.Error("migration failed", "error", err)
			database.Close()
			os.Exit(1)
		}
	}

	handler, err := api.SetupRoutes(cfg, version, buildTime, database)
	if err != nil {
		logger.Error("failed to set up routes", "error", err)
		database.Close()
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// outstanding requests get 30 seconds
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
	if err := database.Close(); err != nil {
		logger.Error("error closing db", "error", err)
	}

	logger.Info("server exited")
}
