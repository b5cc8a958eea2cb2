package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmcrate/farmcrate-backend/api/routes"
	"github.com/farmcrate/farmcrate-backend/internal/billing"
	checkoutsvc "github.com/farmcrate/farmcrate-backend/internal/checkout"
	connectsvc "github.com/farmcrate/farmcrate-backend/internal/connect"
	"github.com/farmcrate/farmcrate-backend/internal/ledger"
	ordersvc "github.com/farmcrate/farmcrate-backend/internal/orders"
	paymentsvc "github.com/farmcrate/farmcrate-backend/internal/payments"
	"github.com/farmcrate/farmcrate-backend/internal/vendors"
	stripewebhook "github.com/farmcrate/farmcrate-backend/internal/webhooks/stripe"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
	"github.com/farmcrate/farmcrate-backend/pkg/metrics"
	"github.com/farmcrate/farmcrate-backend/pkg/migrate"
	"github.com/farmcrate/farmcrate-backend/pkg/redis"
	pkgstripe "github.com/farmcrate/farmcrate-backend/pkg/stripe"
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

	vendorRepo := vendors.NewRepository(dbClient.DB())
	orderRepo := ordersvc.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	buyerRepo := paymentsvc.NewRepository(dbClient.DB())

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Vendors: vendorRepo,
		Gateway: checkoutsvc.NewStripeClient(stripeClient),
		Stripe:  cfg.Stripe,
		Billing: cfg.Billing,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentsService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Repo:    buyerRepo,
		Vendors: vendorRepo,
		Gateway: paymentsvc.NewStripeClient(stripeClient),
		Billing: cfg.Billing,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	connectService, err := connectsvc.NewService(connectsvc.ServiceParams{
		Repo:    vendorRepo,
		Gateway: connectsvc.NewStripeClient(stripeClient),
		Stripe:  cfg.Stripe,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create connect service", err)
		os.Exit(1)
	}

	ordersService, err := ordersvc.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Ledger:  ledgerRepo,
		Vendors: vendorRepo,
		Gateway: billing.NewStripeClient(stripeClient),
		Billing: cfg.Billing,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Vendors:           vendorRepo,
		Orders:            orderRepo,
		Ledger:            ledgerRepo,
		TransactionRunner: dbClient,
		Billing:           cfg.Billing,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Billing.WebhookIdempotencyTTL, "stripe-events")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

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
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Stripe:         stripeClient,
			Metrics:        webhookMetrics,
			Checkout:       checkoutService,
			Payments:       paymentsService,
			Connect:        connectService,
			Orders:         ordersService,
			Billing:        billingService,
			WebhookService: webhookService,
			WebhookGuard:   webhookGuard,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
