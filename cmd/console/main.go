package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"trading-journal-console/internal/auth"
	"trading-journal-console/internal/backend"
	"trading-journal-console/internal/config"
	"trading-journal-console/internal/database"
	"trading-journal-console/internal/dataprovider"
	"trading-journal-console/internal/exchangekeys"
	"trading-journal-console/internal/logger"
	"trading-journal-console/internal/lookup"
	"trading-journal-console/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("api", cfg.API.BaseURL))

	// Open the draft database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to access database handle", zap.Error(err))
	}
	defer sqlDB.Close()

	drafts := database.NewDraftStore(db, log)
	if _, err := drafts.PurgeStale(context.Background(), cfg.Database.DraftTTL); err != nil {
		log.Warn("Failed to purge stale drafts", zap.Error(err))
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// API client and the services built on it
	client := backend.NewClient(&cfg.API, log, backend.NewMetrics(reg))
	lookups := lookup.New(client)

	server, err := web.NewServer(cfg.Server, web.Deps{
		Auth:     auth.NewGateway(client, log, cfg.API.ProfileMethod),
		Data:     dataprovider.New(client, log),
		Lookups:  lookups,
		Keys:     exchangekeys.NewManager(client, lookups, log),
		Drafts:   drafts,
		Gatherer: reg,
		Ping:     sqlDB.PingContext,
	}, log)
	if err != nil {
		log.Fatal("Failed to build web server", zap.Error(err))
	}
	server.Start()

	// Wait for a shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Error("Web server forced to shut down", zap.Error(err))
	}

	log.Info("Console has been shut down.")
}
