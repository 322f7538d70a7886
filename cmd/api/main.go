package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opslog-io/opslog-backend/api/routes"
	"github.com/opslog-io/opslog-backend/internal/webhooks"
	"github.com/opslog-io/opslog-backend/pkg/config"
	"github.com/opslog-io/opslog-backend/pkg/db"
	"github.com/opslog-io/opslog-backend/pkg/logger"
	"github.com/opslog-io/opslog-backend/pkg/metrics"
	"github.com/opslog-io/opslog-backend/pkg/migrate"
	"github.com/opslog-io/opslog-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	repo := webhooks.NewRepository(dbClient.DB())
	deliverer, err := webhooks.NewDeliverer(webhooks.DelivererParams{
		Repository: repo,
		Logger:     logg,
		Metrics:    webhookMetrics,
		Timeout:    cfg.Webhooks.DeliveryTimeout,
		Threshold:  cfg.Webhooks.FailureThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deliverer", err)
		os.Exit(1)
	}
	webhooksService, err := webhooks.NewService(repo, deliverer)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhooks service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			WebhooksService: webhooksService,
			MetricsGatherer: prometheus.DefaultGatherer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
