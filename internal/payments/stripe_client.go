package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/ephemeralkey"
	"github.com/stripe/stripe-go/v84/paymentintent"

	pkgstripe "github.com/farmcrate/farmcrate-backend/pkg/stripe"
)

// StripePaymentClient exposes the subset of Stripe operations required by the payments service.
type StripePaymentClient interface {
	CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyParams) (*stripe.EphemeralKey, error)
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the payments service can be tested.
func NewStripeClient(api *pkgstripe.Client) StripePaymentClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params != nil {
		params.Context = ctx
	}
	return customer.New(params)
}

func (w *stripeClientWrapper) CreateEphemeralKey(ctx context.Context, params *stripe.EphemeralKeyParams) (*stripe.EphemeralKey, error) {
	if params != nil {
		params.Context = ctx
	}
	return ephemeralkey.New(params)
}

func (w *stripeClientWrapper) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}
