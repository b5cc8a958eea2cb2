package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmcrate/farmcrate-backend/internal/billing"
	"github.com/farmcrate/farmcrate-backend/internal/cron"
	"github.com/farmcrate/farmcrate-backend/internal/ledger"
	"github.com/farmcrate/farmcrate-backend/internal/vendors"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
	"github.com/farmcrate/farmcrate-backend/pkg/metrics"
	"github.com/farmcrate/farmcrate-backend/pkg/migrate"
	"github.com/farmcrate/farmcrate-backend/pkg/redis"
	pkgstripe "github.com/farmcrate/farmcrate-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "billing-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "billing-worker"

	logg = logger.New(logger.Options{
		ServiceName: "billing-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Ledger:  ledger.NewRepository(dbClient.DB()),
		Vendors: vendors.NewRepository(dbClient.DB()),
		Gateway: billing.NewStripeClient(stripeClient),
		Billing: cfg.Billing,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	billingJob, err := cron.NewSeasonalBillingJob(cron.SeasonalBillingJobParams{
		Logger:  logg,
		Billing: billingService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(billingJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Billing.RunInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting billing worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "billing worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "billing worker shutting down gracefully")
}
