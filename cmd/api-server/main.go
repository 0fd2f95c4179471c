package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/apiserver"
	"github.com/nightgate/nightgate/pkg/apiserver/handlers"
	"github.com/nightgate/nightgate/pkg/config"
	"github.com/nightgate/nightgate/pkg/eventbus"
	"github.com/nightgate/nightgate/pkg/logging"
	"github.com/nightgate/nightgate/pkg/store"
	"github.com/nightgate/nightgate/pkg/store/postgres"
	redisclient "github.com/nightgate/nightgate/pkg/store/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var runs store.RunReader
	if cfg.Database.Enabled {
		db, err := postgres.NewStore(&cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.AutoMigrate(); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		runs = postgres.NewRunRepository(db.DB())
	}

	var events handlers.Subscriber
	if cfg.Redis.Enabled {
		redis, err := redisclient.NewClient(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		events = eventbus.NewBus(redis.Client())
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty, /api/v1 will reject every request")
	}

	server := apiserver.NewServer(runs, events, cfg, logger)

	// no write timeout: /api/v1/events streams for as long as the client stays
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:     server.Router(),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:     metricsMux,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		logger.Info("Starting API server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting metrics server", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	_ = metricsServer.Shutdown(ctx)
}
