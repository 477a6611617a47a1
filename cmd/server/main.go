package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temmyjay001/agency-service/internal/config"
	"github.com/temmyjay001/agency-service/internal/credits"
	"github.com/temmyjay001/agency-service/internal/logging"
	"github.com/temmyjay001/agency-service/internal/server"
	"github.com/temmyjay001/agency-service/internal/storage"
)

func main() {
	// Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.Env)

	if err := credits.ValidatePackages(credits.DefaultPackages); err != nil {
		logrus.Fatalf("Invalid credit package catalog: %v", err)
	}

	if !cfg.RelayConfigured() {
		logrus.Warn("n8n relay is not fully configured; relayed actions will fail until N8N_BASE_URL, N8N_WEBHOOK_PATH and N8N_SHARED_SECRET are set")
	}

	// Initialize the credit store
	var (
		store credits.Store
		db    *storage.DB
	)
	switch cfg.CreditsStore {
	case config.StorePostgres:
		if err := storage.MigrateUp(cfg.DatabaseURL); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}

		db, err = storage.NewPostgresDB(cfg)
		if err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		store = credits.NewPostgresStore(db, cfg.CreditsDefaultAllocation)
	case config.StoreRedis:
		client, err := storage.NewRedisClient(cfg)
		if err != nil {
			logrus.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()

		store = credits.NewRedisStore(client, cfg.CreditsDefaultAllocation)
	default:
		logrus.Warn("Using in-memory credit store; balances are lost on restart")
		store = credits.NewMemoryStore(cfg.CreditsDefaultAllocation)
	}

	// initialize server
	srv := server.New(cfg, store, db)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go srv.StartEventDispatcher(ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	//graceful shutdown
	go func() {
		logrus.Infof("Server starting on %s:%s (credits store: %s)", cfg.Host, cfg.Port, cfg.CreditsStore)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed to start: %v", err)
		}
	}()

	// wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}
	stop()
	logrus.Info("Server exited")
}
