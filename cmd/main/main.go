package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"alert-relay/src/config"
	"alert-relay/src/feed"
	"alert-relay/src/helpers"
	"alert-relay/src/interfaces"
	"alert-relay/src/logger"
	"alert-relay/src/models"
	"alert-relay/src/relay"
	"alert-relay/src/server"
	"alert-relay/src/storage"
	"alert-relay/src/utils"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Optional .env for deploy secrets (DATABASE_URL)
	godotenv.Load()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 1. Alert history store
	var store interfaces.IAlertStore

	switch cfg.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresDB(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		store, err = storage.NewSQLiteDB(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init store: %v", err)
	}

	// The database may still be coming up alongside us
	if _, err := helpers.RetryWithBackoff("store initialize", 3, time.Second, func() (interface{}, error) {
		return nil, store.Initialize()
	}); err != nil {
		appLogger.Critical("Failed to migrate store: %v", err)
	}

	// 2. Core relay components
	registry := relay.NewRegistry(logger.NewLogger(cfg.LogLevel, "Registry"))
	recent := utils.NewAlertRing(cfg.Alerts.RecentBufferSize)
	recorder := storage.NewAlertRecorder(store, logger.NewLogger(cfg.LogLevel, "AlertRecorder"), cfg.Alerts.RecorderQueue)

	registry.SetAlertSink(func(event models.MAlertEvent) {
		recent.Append(event)
		recorder.Record(event)
	})

	// 3. Upstream feed connector
	connector := feed.NewConnector(cfg.MConfig, registry, cfg.LogLevel)

	// 4. Gateway
	clock := utils.NewMarketClock(cfg.Feed.Symbols, logger.NewLogger(cfg.LogLevel, "MarketClock"))
	gateway := server.NewGateway(cfg.MConfig, appLogger, registry, recent, clock, connector.Status)

	// 5. Start everything
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := &sync.WaitGroup{}

	recorder.Start(ctx, wg)

	if err := connector.Start(ctx, wg); err != nil {
		appLogger.Critical("Failed to start feed connector: %v", err)
	}

	go func() {
		if err := gateway.Start(); err != nil {
			appLogger.Critical("Gateway failed: %v", err)
		}
	}()

	appLogger.Info("Relay running: ws endpoint /ws/:client_id, feed %s", cfg.Feed.URL)

	// 6. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	wg.Wait()
	if err := store.Close(); err != nil {
		appLogger.Error("Failed to close store: %v", err)
	}
}
