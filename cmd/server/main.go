package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/api"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/app"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/config"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/logging"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // nothing to do on a failed flush at exit
	zap.ReplaceGlobals(logger)

	application, err := app.New(cfg, nil, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	logger.Info("Connected to database", zap.String("path", cfg.Database.Path))

	sched, err := scheduler.New(scheduler.Config{
		Snapshot: cfg.Schedule.Snapshot,
		History:  cfg.Schedule.History,
	}, application.Snapshot, application.History, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("Failed to create scheduler", zap.Error(err))
	}
	sched.Start()

	// Create router
	router := api.NewRouter(api.Services{
		System:   application.System,
		Snapshot: application.Snapshot,
		History:  application.History,
		Image:    application.Images,
		Price:    application.Prices,
	}, cfg, logger.Named("http"))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a rebuild fetches every listing
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop(ctx)
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
