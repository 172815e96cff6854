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

	"github.com/Kilat-Pet-Delivery/service-album/internal/app"
	"github.com/Kilat-Pet-Delivery/service-album/internal/config"
	"github.com/Kilat-Pet-Delivery/service-album/internal/database"
	"github.com/Kilat-Pet-Delivery/service-album/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, app.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+app.ServiceName,
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Driver),
		zap.Bool("kafka", cfg.Kafka.Enabled()),
	)
	if cfg.Provider.APIKey == "" {
		log.Warn("provider API key is empty; refreshes will fail")
	}

	// Connect to database and bring the schema up to date
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Prepare(db, cfg.Database, cfg.AppEnv, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	service := app.New(cfg, db, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartConsumer(ctx)

	// Responses may stream (events, waited refreshes), so there is no write timeout.
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           service.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + app.ServiceName + "...")

	// Cancel the consumer context
	cancel()

	// Event streams never end on their own; close them before draining connections.
	service.Broker.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	service.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info(app.ServiceName + " stopped")
}
