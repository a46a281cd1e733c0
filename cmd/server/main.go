package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/handler"
	"github.com/rumpus-tracker/internal/kafka"
	"github.com/rumpus-tracker/internal/metrics"
	"github.com/rumpus-tracker/internal/postgres"
	"github.com/rumpus-tracker/internal/redis"
	"github.com/rumpus-tracker/internal/rumpus"
	"github.com/rumpus-tracker/internal/service"
	"github.com/rumpus-tracker/internal/websocket"
	"github.com/rumpus-tracker/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	// Initialize the API client
	client, err := rumpus.New(&cfg.Rumpus, logger, rumpus.WithMetrics(collector))
	if err != nil {
		logger.Error("failed to create rumpus client", "error", err)
		os.Exit(1)
	}
	logger.Info("rumpus client ready", "base_url", client.BaseURL())

	// Initialize Redis
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	rankings, err := redis.NewRankingStore(&cfg.Redis, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer rankings.Close()
	logger.Info("connected to Redis")

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	snapshots, err := postgres.NewSnapshotStore(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer snapshots.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := snapshots.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	opts := []service.Option{
		service.WithBroadcaster(wsHub),
		service.WithMetrics(collector),
	}

	// Initialize Kafka publisher for poll events
	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled {
		publisher, err = kafka.NewPublisher(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka publisher, continuing without events", "error", err)
			publisher = nil
		} else {
			defer publisher.Close()
			opts = append(opts, service.WithPublisher(publisher))
		}
	}

	// Initialize services
	tracker, err := service.NewTrackerService(
		client,
		rankings,
		snapshots,
		cfg.Watches,
		&cfg.Ranking,
		logger,
		opts...,
	)
	if err != nil {
		logger.Error("invalid watch configuration", "error", err)
		os.Exit(1)
	}
	if err := tracker.RegisterWatches(ctx); err != nil {
		logger.Warn("failed to register watches", "error", err)
	}

	// Initialize poll worker
	pollWorker := worker.NewPollWorker(tracker, &cfg.Poll, logger)

	// Restore rankings from the latest snapshots (recovery)
	if cfg.Poll.RestoreOnStart {
		pollWorker.RestoreRankings(ctx)
	}

	// Start poll worker
	if cfg.Poll.Enabled {
		if err := pollWorker.Start(ctx); err != nil {
			logger.Error("failed to start poll worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for queued poll requests
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.RequestTopic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, tracker, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler
	handlerOpts := []handler.Option{
		handler.WithReadiness("redis", rankings.Ping),
		handler.WithReadiness("postgres", snapshots.Ping),
	}
	if collector != nil {
		handlerOpts = append(handlerOpts, handler.WithMetrics(cfg.Metrics.Path, collector.Handler()))
	}
	if publisher != nil {
		handlerOpts = append(handlerOpts, handler.WithPollRequester(publisher))
	}
	httpHandler := handler.NewHandler(tracker, wsHub, logger, handlerOpts...)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "watches", len(cfg.Watches))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop poll worker
	if err := pollWorker.Stop(); err != nil {
		logger.Error("failed to stop poll worker", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}

// loadConfig reads the config file. Only a missing file falls back to
// defaults; a file that fails to parse or validate is fatal.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}

	slog.Warn("config file not found, using defaults", "path", path)
	cfg = config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}
