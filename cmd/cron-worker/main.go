package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hmkwon/dishpatch-backend/internal/cron"
	"github.com/hmkwon/dishpatch-backend/internal/deliveries"
	"github.com/hmkwon/dishpatch-backend/internal/orders"
	"github.com/hmkwon/dishpatch-backend/pkg/config"
	"github.com/hmkwon/dishpatch-backend/pkg/db"
	"github.com/hmkwon/dishpatch-backend/pkg/logger"
	"github.com/hmkwon/dishpatch-backend/pkg/metrics"
	"github.com/hmkwon/dishpatch-backend/pkg/migrate"
	"github.com/hmkwon/dishpatch-backend/pkg/outbox"
	"github.com/hmkwon/dishpatch-backend/pkg/redis"
)

const lockKeyFormat = "dp:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	orderRepo := orders.NewRepository(dbClient.DB())
	deliveryRepo := deliveries.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	nudgeJob, err := cron.NewPendingNudgeJob(cron.PendingNudgeJobParams{
		Logger:     logg,
		DB:         dbClient,
		Orders:     orderRepo,
		Outbox:     outboxService,
		NudgeAfter: cfg.Cron.PendingNudgeAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending nudge job", err)
		os.Exit(1)
	}

	archiveJob, err := cron.NewDeliveryArchiveJob(cron.DeliveryArchiveJobParams{
		Logger:     logg,
		Deliveries: deliveryRepo,
		Age:        cfg.Cron.DeliveryArchiveAge,
		BatchSize:  cfg.Cron.DeliveryArchiveSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery archive job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(nudgeJob, archiveJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.TickInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
