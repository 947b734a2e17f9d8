package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/deals"
	"github.com/felipemendesbraga/EuLevo/pkg/lifecycle"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/notify"
	"github.com/felipemendesbraga/EuLevo/pkg/perm"
	"github.com/felipemendesbraga/EuLevo/pkg/push"
	"github.com/felipemendesbraga/EuLevo/pkg/queue"
	"github.com/felipemendesbraga/EuLevo/pkg/storage"
	"github.com/felipemendesbraga/EuLevo/pkg/webserver"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	if err := log.Init(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	logger := log.GetLogger()
	logger.Info("Starting EuLevo API server...")

	// Initialize database
	database, err := db.New(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Initialize blob storage
	blobs, err := storage.NewLocalStore(cfg.Storage.Root)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize blob storage")
	}

	// Wire up domain services
	gateway := notify.NewGateway(database, logger, cfg.Queue.RetryAttempts)
	perms := perm.NewPropagator(logger)
	lifecycleMgr := lifecycle.NewManager(logger, gateway, perms, blobs)
	engine := deals.NewEngine(database, logger, gateway)

	// Start the notification delivery workers
	provider := push.NewHTTPProvider(&cfg.Push, logger)
	queueManager := queue.NewManager(cfg, database, logger, provider)

	queueCtx, queueCancel := context.WithCancel(context.Background())
	defer queueCancel()

	if err := queueManager.Start(queueCtx); err != nil {
		logger.WithError(err).Fatal("Failed to start queue manager")
	}

	// Create and start HTTP server
	server, err := webserver.New(cfg, database, logger, engine, lifecycleMgr, perms, blobs)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create web server")
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start web server")
		}
	}()

	logger.Info("EuLevo API server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.GracefulStop)*time.Second,
	)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop web server gracefully")
	}

	queueManager.Stop()

	logger.Info("Server shutdown complete")
}
