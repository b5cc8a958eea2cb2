package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/farmcrate/farmcrate-backend/internal/fees"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

const invoiceCurrency = "usd"

type ledgerRepository interface {
	ListForSeason(ctx context.Context, year int, season enums.Season) ([]models.SeasonalLedger, error)
	Update(ctx context.Context, row *models.SeasonalLedger) error
}

type platformCustomerLoader interface {
	GetPlatformCustomerByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.VendorPlatformCustomer, error)
}

// ServiceParams groups dependencies for the seasonal billing service.
type ServiceParams struct {
	Ledger  ledgerRepository
	Vendors platformCustomerLoader
	Gateway StripeBillingClient
	Billing config.BillingConfig
	Logger  *logger.Logger
}

// Service bills vendors their seasonal hosting fee net of the sales-volume
// discount. Rows are processed sequentially; a failure on one vendor is
// recorded on that ledger row and never aborts the rest of the run.
type Service struct {
	ledger  ledgerRepository
	vendors platformCustomerLoader
	gateway StripeBillingClient
	cfg     config.BillingConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repository required")
	}
	if params.Vendors == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "vendor repository required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe gateway required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		ledger:  params.Ledger,
		vendors: params.Vendors,
		gateway: params.Gateway,
		cfg:     params.Billing,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// RunInput selects the season to bill.
type RunInput struct {
	SeasonYear int
	Season     enums.Season

	// BaseFee overrides the configured base hosting fee for this run when
	// positive. Whole currency units.
	BaseFee int64

	// Force re-processes rows already marked invoiced. Re-running with Force
	// issues a second invoice for those vendors, so it is meant for manual
	// recovery only.
	Force bool
}

// RunResult summarizes one billing run.
type RunResult struct {
	SeasonYear      int          `json:"season_year"`
	Season          enums.Season `json:"season"`
	Processed       int          `json:"processed"`
	Invoiced        int          `json:"invoiced"`
	NoCharge        int          `json:"no_charge"`
	NoPaymentMethod int          `json:"no_payment_method"`
	AlreadyInvoiced int          `json:"already_invoiced"`
	Failed          int          `json:"failed"`
}

// RunCurrentSeason bills the season the current instant falls in.
func (s *Service) RunCurrentSeason(ctx context.Context) (*RunResult, error) {
	season, year := enums.SeasonOf(s.now().UTC())
	return s.RunSeason(ctx, RunInput{SeasonYear: year, Season: season})
}

// RunSeason processes every ledger row for the given season.
func (s *Service) RunSeason(ctx context.Context, input RunInput) (*RunResult, error) {
	if !input.Season.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid season")
	}
	if input.SeasonYear <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "season year required")
	}

	rows, err := s.ledger.ListForSeason(ctx, input.SeasonYear, input.Season)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list season ledgers")
	}

	baseFee := s.cfg.BaseHostingFee
	if input.BaseFee > 0 {
		baseFee = input.BaseFee
	}

	result := &RunResult{SeasonYear: input.SeasonYear, Season: input.Season}
	var errs []error
	for i := range rows {
		row := &rows[i]
		result.Processed++
		if err := s.billVendor(ctx, row, baseFee, input.Force, result); err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("farmer %s: %w", row.FarmerID, err))
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"season":            fmt.Sprintf("%s %d", input.Season, input.SeasonYear),
		"processed":         result.Processed,
		"invoiced":          result.Invoiced,
		"no_charge":         result.NoCharge,
		"no_payment_method": result.NoPaymentMethod,
		"already_invoiced":  result.AlreadyInvoiced,
		"failed":            result.Failed,
	})
	s.logg.Info(logCtx, "seasonal billing run complete")
	return result, multierr.Combine(errs...)
}

func (s *Service) billVendor(ctx context.Context, row *models.SeasonalLedger, baseFee int64, force bool, result *RunResult) error {
	logCtx := s.logg.WithFarmerID(ctx, row.FarmerID.String())

	if row.BillingStatus == enums.LedgerBillingStatusInvoiced && !force {
		result.AlreadyInvoiced++
		return nil
	}

	fee := fees.ComputeHostingFee(row.NetSales, baseFee)
	row.DiscountAmount = fee.Discount
	row.HostingFeeDue = fee.Due
	row.BillingError = nil

	if !row.NetSales.IsPositive() || fee.Due.IsZero() {
		row.HostingFeeDue = decimal.Zero
		row.BillingStatus = enums.LedgerBillingStatusNoCharge
		if err := s.ledger.Update(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist no-charge outcome")
		}
		result.NoCharge++
		return nil
	}

	customer, err := s.vendors.GetPlatformCustomerByFarmerID(ctx, row.FarmerID)
	if err != nil {
		return s.markError(ctx, row, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load platform customer"))
	}
	if customer == nil {
		row.BillingStatus = enums.LedgerBillingStatusNoPaymentMethod
		if err := s.ledger.Update(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist no-payment-method outcome")
		}
		result.NoPaymentMethod++
		return nil
	}

	invoiceID, err := s.issueInvoice(ctx, row, customer.StripeCustomerID, fee)
	if err != nil {
		return s.markError(ctx, row, err)
	}

	row.HostingInvoiceID = &invoiceID
	row.BillingStatus = enums.LedgerBillingStatusInvoiced
	if err := s.ledger.Update(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist invoiced outcome")
	}

	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"invoice_id":  invoiceID,
		"fee_due":     fee.Due.String(),
		"discount":    fee.Discount.String(),
		"net_sales":   row.NetSales.String(),
		"season_year": row.SeasonYear,
		"season":      row.SeasonName.String(),
	})
	s.logg.Info(logCtx, "hosting fee invoiced")
	result.Invoiced++
	return nil
}

// issueInvoice creates the base-fee and discount line items, then a draft
// invoice picking them up, then finalizes it so the gateway starts collection.
// The discount stays a separate negative line so the vendor's statement shows
// it explicitly.
func (s *Service) issueInvoice(ctx context.Context, row *models.SeasonalLedger, customerID string, fee fees.HostingFee) (string, error) {
	seasonLabel := fmt.Sprintf("%s %d", row.SeasonName, row.SeasonYear)

	baseItem := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(fees.DecimalToCents(fee.Base)),
		Currency:    stripe.String(invoiceCurrency),
		Description: stripe.String(fmt.Sprintf("Seasonal hosting fee (%s)", seasonLabel)),
	}
	if _, err := s.gateway.CreateInvoiceItem(ctx, baseItem); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hosting fee line item")
	}

	if discountCents := fees.DecimalToCents(fee.Discount); discountCents > 0 {
		discountItem := &stripe.InvoiceItemParams{
			Customer:    stripe.String(customerID),
			Amount:      stripe.Int64(-discountCents),
			Currency:    stripe.String(invoiceCurrency),
			Description: stripe.String(fmt.Sprintf("Sales volume discount (%s)", seasonLabel)),
		}
		if _, err := s.gateway.CreateInvoiceItem(ctx, discountItem); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount line item")
		}
	}

	inv, err := s.gateway.CreateInvoice(ctx, &stripe.InvoiceParams{
		Customer:                    stripe.String(customerID),
		CollectionMethod:            stripe.String(string(stripe.InvoiceCollectionMethodChargeAutomatically)),
		PendingInvoiceItemsBehavior: stripe.String("include"),
		AutoAdvance:                 stripe.Bool(false),
		Metadata: map[string]string{
			"farmer_id":   row.FarmerID.String(),
			"season_year": fmt.Sprintf("%d", row.SeasonYear),
			"season_name": row.SeasonName.String(),
			"purpose":     "seasonal_hosting",
		},
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hosting invoice")
	}

	finalized, err := s.gateway.FinalizeInvoice(ctx, inv.ID, &stripe.InvoiceFinalizeInvoiceParams{
		AutoAdvance: stripe.Bool(true),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize hosting invoice")
	}
	return finalized.ID, nil
}

func (s *Service) markError(ctx context.Context, row *models.SeasonalLedger, cause error) error {
	msg := cause.Error()
	row.BillingStatus = enums.LedgerBillingStatusError
	row.BillingError = &msg
	if updateErr := s.ledger.Update(ctx, row); updateErr != nil {
		s.logg.Error(ctx, "failed to record billing error on ledger", updateErr)
	}
	return cause
}
