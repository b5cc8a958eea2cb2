package billing

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/invoice"
	"github.com/stripe/stripe-go/v84/invoiceitem"

	pkgstripe "github.com/farmcrate/farmcrate-backend/pkg/stripe"
)

// StripeBillingClient exposes the subset of Stripe operations required by the billing service.
type StripeBillingClient interface {
	CreateInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error)
	CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (*stripe.Invoice, error)
	FinalizeInvoice(ctx context.Context, id string, params *stripe.InvoiceFinalizeInvoiceParams) (*stripe.Invoice, error)
}

type stripeClientWrapper struct{}

// NewStripeClient wraps the provided Stripe client so the billing service can be tested.
func NewStripeClient(api *pkgstripe.Client) StripeBillingClient {
	if api == nil {
		return nil
	}
	return &stripeClientWrapper{}
}

func (w *stripeClientWrapper) CreateInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
	if params != nil {
		params.Context = ctx
	}
	return invoiceitem.New(params)
}

func (w *stripeClientWrapper) CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (*stripe.Invoice, error) {
	if params != nil {
		params.Context = ctx
	}
	return invoice.New(params)
}

func (w *stripeClientWrapper) FinalizeInvoice(ctx context.Context, id string, params *stripe.InvoiceFinalizeInvoiceParams) (*stripe.Invoice, error) {
	if params != nil {
		params.Context = ctx
	}
	return invoice.FinalizeInvoice(id, params)
}
