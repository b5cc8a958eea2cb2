package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farmcrate/farmcrate-backend/api/controllers"
	webhookcontrollers "github.com/farmcrate/farmcrate-backend/api/controllers/webhooks"
	"github.com/farmcrate/farmcrate-backend/api/middleware"
	billingsvc "github.com/farmcrate/farmcrate-backend/internal/billing"
	checkoutsvc "github.com/farmcrate/farmcrate-backend/internal/checkout"
	connectsvc "github.com/farmcrate/farmcrate-backend/internal/connect"
	ordersvc "github.com/farmcrate/farmcrate-backend/internal/orders"
	paymentsvc "github.com/farmcrate/farmcrate-backend/internal/payments"
	stripewebhook "github.com/farmcrate/farmcrate-backend/internal/webhooks/stripe"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
	"github.com/farmcrate/farmcrate-backend/pkg/metrics"
	"github.com/farmcrate/farmcrate-backend/pkg/stripe"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      pinger
	Redis   pinger
	Stripe  *stripe.Client
	Metrics *metrics.WebhookMetrics

	Checkout checkoutsvc.Service
	Payments paymentsvc.Service
	Connect  connectsvc.Service
	Orders   ordersvc.Service
	Billing  *billingsvc.Service

	WebhookService *stripewebhook.Service
	WebhookGuard   *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.WebhookService, deps.Stripe, deps.WebhookGuard, deps.Metrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.UserRoleBuyer, enums.UserRoleAdmin))
			r.Post("/checkout/sessions", controllers.CreateCheckoutSessions(deps.Checkout, logg))
			r.Post("/payments/intents", controllers.CreatePaymentIntents(deps.Payments, logg))
		})

		r.Route("/connect", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.UserRoleFarmer))
			r.Post("/onboard", controllers.ConnectOnboard(deps.Connect, logg))
			r.Post("/billing-setup", controllers.ConnectBillingSetup(deps.Connect, logg))
			r.Get("/status", controllers.ConnectStatus(deps.Connect, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, logg))
		})

		r.With(middleware.RequireRoles(logg, enums.UserRoleAdmin)).
			Post("/billing/seasonal", controllers.RunSeasonalBilling(deps.Billing, logg))
	})

	return r
}
