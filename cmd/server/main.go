package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bracket-tournament/internal/config"
	"github.com/bracket-tournament/internal/handler"
	"github.com/bracket-tournament/internal/kafka"
	"github.com/bracket-tournament/internal/memory"
	"github.com/bracket-tournament/internal/metrics"
	"github.com/bracket-tournament/internal/postgres"
	"github.com/bracket-tournament/internal/redis"
	"github.com/bracket-tournament/internal/service"
	"github.com/bracket-tournament/internal/worker"
)

// backend is a store serving both the tournament core and user accounts
type backend interface {
	service.Store
	service.UserRegistry
}

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
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store backend
	var pingers []handler.Pinger

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, state is lost on restart")
		store = memory.NewStore()
	default:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err := postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		logger.Info("connected to PostgreSQL")

		if err := repo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		store = repo
		pingers = append(pingers, repo)
	}

	m := metrics.New()

	// Initialize services
	tournaments := service.NewTournamentService(store, store, &cfg.Tournament, logger)
	tournaments.SetMetrics(m)

	// Redis backs the final-leaderboard cache and the rotation lock
	var rotationLock worker.Locker
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		client, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		logger.Info("connected to Redis")

		cache := redis.NewLeaderboardCache(client, cfg.Cache.LeaderboardTTL, logger)
		tournaments.SetCache(cache)
		pingers = append(pingers, cache)
		rotationLock = redis.NewRotationLock(client, cfg.Rotation.LockKey, cfg.Rotation.LockTTL)
	}

	// Level-up events go through Kafka when enabled, otherwise in-process
	var publisher service.EventPublisher = service.NewLocalPublisher(tournaments)
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		producer, err := kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, publishing in-process", "error", err)
		} else {
			defer producer.Close()
			publisher = producer
		}

		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, tournaments, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		} else {
			logger.Info("Kafka consumer started successfully")
		}
	}

	users := service.NewUserService(store, publisher, &cfg.Tournament, logger)

	// Rotation worker
	rotationWorker := worker.NewRotationWorker(tournaments, rotationLock, &cfg.Rotation, logger)
	if cfg.Rotation.Enabled {
		if err := rotationWorker.Start(ctx); err != nil {
			logger.Error("failed to start rotation worker", "error", err)
			os.Exit(1)
		}
	}

	httpHandler := handler.NewHandler(tournaments, users, rotationWorker, m, logger, pingers...)

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
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	// Stop rotation worker
	if err := rotationWorker.Stop(); err != nil {
		logger.Error("failed to stop rotation worker", "error", err)
	}

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	logger.Info("server stopped")
}
