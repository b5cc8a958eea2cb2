package billing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

type stubLedger struct {
	rows    []models.SeasonalLedger
	updated []*models.SeasonalLedger
	listErr error
}

func (s *stubLedger) ListForSeason(ctx context.Context, year int, season enums.Season) ([]models.SeasonalLedger, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.rows, nil
}

func (s *stubLedger) Update(ctx context.Context, row *models.SeasonalLedger) error {
	copied := *row
	s.updated = append(s.updated, &copied)
	return nil
}

type stubCustomers struct {
	byFarmer map[uuid.UUID]*models.VendorPlatformCustomer
}

func (s *stubCustomers) GetPlatformCustomerByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.VendorPlatformCustomer, error) {
	return s.byFarmer[farmerID], nil
}

type stubGateway struct {
	items        []*stripe.InvoiceItemParams
	invoices     []*stripe.InvoiceParams
	finalized    []string
	failCustomer string
	failCreate   error
	seq          int
}

func (s *stubGateway) CreateInvoiceItem(ctx context.Context, params *stripe.InvoiceItemParams) (*stripe.InvoiceItem, error) {
	if s.failCreate != nil && (s.failCustomer == "" || (params.Customer != nil && *params.Customer == s.failCustomer)) {
		return nil, s.failCreate
	}
	s.items = append(s.items, params)
	return &stripe.InvoiceItem{ID: "ii_test"}, nil
}

func (s *stubGateway) CreateInvoice(ctx context.Context, params *stripe.InvoiceParams) (*stripe.Invoice, error) {
	s.invoices = append(s.invoices, params)
	s.seq++
	return &stripe.Invoice{ID: invoiceID(s.seq)}, nil
}

func (s *stubGateway) FinalizeInvoice(ctx context.Context, id string, params *stripe.InvoiceFinalizeInvoiceParams) (*stripe.Invoice, error) {
	s.finalized = append(s.finalized, id)
	return &stripe.Invoice{ID: id, Status: stripe.InvoiceStatusOpen}, nil
}

func invoiceID(seq int) string {
	return "in_test_" + string(rune('a'+seq-1))
}

func ledgerRow(farmerID uuid.UUID, netSales string) models.SeasonalLedger {
	net := decimal.RequireFromString(netSales)
	return models.SeasonalLedger{
		ID:            uuid.New(),
		FarmerID:      farmerID,
		SeasonYear:    2026,
		SeasonName:    enums.SeasonSummer,
		GrossSales:    net,
		NetSales:      net,
		BillingStatus: enums.LedgerBillingStatusPending,
	}
}

func newBillingService(t *testing.T, ledgerRepo *stubLedger, customers *stubCustomers, gateway *stubGateway) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Ledger:  ledgerRepo,
		Vendors: customers,
		Gateway: gateway,
		Billing: config.BillingConfig{BaseHostingFee: 50, CommissionRateBps: 1200},
		Logger:  logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestRunSeasonInvoicesVendorWithDiscount(t *testing.T) {
	farmerID := uuid.New()
	ledgerRepo := &stubLedger{rows: []models.SeasonalLedger{ledgerRow(farmerID, "237.50")}}
	customers := &stubCustomers{byFarmer: map[uuid.UUID]*models.VendorPlatformCustomer{
		farmerID: {FarmerID: farmerID, StripeCustomerID: "cus_vendor"},
	}}
	gateway := &stubGateway{}
	svc := newBillingService(t, ledgerRepo, customers, gateway)

	result, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Invoiced)
	assert.Zero(t, result.Failed)

	require.Len(t, gateway.items, 2, "base fee and discount must be separate line items")
	assert.Equal(t, int64(5000), *gateway.items[0].Amount)
	assert.Equal(t, int64(-2300), *gateway.items[1].Amount)
	assert.Equal(t, "cus_vendor", *gateway.items[0].Customer)

	require.Len(t, gateway.invoices, 1)
	require.Len(t, gateway.finalized, 1)

	require.NotEmpty(t, ledgerRepo.updated)
	final := ledgerRepo.updated[len(ledgerRepo.updated)-1]
	assert.Equal(t, enums.LedgerBillingStatusInvoiced, final.BillingStatus)
	require.NotNil(t, final.HostingInvoiceID)
	assert.True(t, final.DiscountAmount.Equal(decimal.NewFromInt(23)), "discount %s", final.DiscountAmount)
	assert.True(t, final.HostingFeeDue.Equal(decimal.NewFromInt(27)), "due %s", final.HostingFeeDue)
}

func TestRunSeasonZeroSalesIsNoCharge(t *testing.T) {
	farmerID := uuid.New()
	ledgerRepo := &stubLedger{rows: []models.SeasonalLedger{ledgerRow(farmerID, "0")}}
	gateway := &stubGateway{}
	svc := newBillingService(t, ledgerRepo, &stubCustomers{}, gateway)

	result, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NoCharge)

	assert.Empty(t, gateway.items, "no invoice may be issued for a zero due amount")
	require.Len(t, ledgerRepo.updated, 1)
	row := ledgerRepo.updated[0]
	assert.Equal(t, enums.LedgerBillingStatusNoCharge, row.BillingStatus)
	assert.True(t, row.DiscountAmount.IsZero())
	assert.True(t, row.HostingFeeDue.IsZero(), "a no-charge row owes nothing, got %s", row.HostingFeeDue)
	assert.Nil(t, row.HostingInvoiceID)
}

func TestRunSeasonFullDiscountIsNoCharge(t *testing.T) {
	farmerID := uuid.New()
	ledgerRepo := &stubLedger{rows: []models.SeasonalLedger{ledgerRow(farmerID, "500.00")}}
	gateway := &stubGateway{}
	svc := newBillingService(t, ledgerRepo, &stubCustomers{}, gateway)

	result, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NoCharge)

	require.Len(t, ledgerRepo.updated, 1)
	row := ledgerRepo.updated[0]
	assert.True(t, row.DiscountAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, row.HostingFeeDue.IsZero())
	assert.Empty(t, gateway.items)
}

func TestRunSeasonMissingCustomerIsNoPaymentMethod(t *testing.T) {
	farmerID := uuid.New()
	ledgerRepo := &stubLedger{rows: []models.SeasonalLedger{ledgerRow(farmerID, "120.00")}}
	gateway := &stubGateway{}
	svc := newBillingService(t, ledgerRepo, &stubCustomers{}, gateway)

	result, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NoPaymentMethod)

	assert.Empty(t, gateway.items)
	require.Len(t, ledgerRepo.updated, 1)
	assert.Equal(t, enums.LedgerBillingStatusNoPaymentMethod, ledgerRepo.updated[0].BillingStatus)
}

func TestRunSeasonIsolatesVendorFailures(t *testing.T) {
	failing := uuid.New()
	healthy := uuid.New()
	ledgerRepo := &stubLedger{rows: []models.SeasonalLedger{
		ledgerRow(failing, "100.00"),
		ledgerRow(healthy, "100.00"),
	}}
	customers := &stubCustomers{byFarmer: map[uuid.UUID]*models.VendorPlatformCustomer{
		failing: {FarmerID: failing, StripeCustomerID: "cus_fail"},
		healthy: {FarmerID: healthy, StripeCustomerID: "cus_ok"},
	}}
	gateway := &stubGateway{failCustomer: "cus_fail", failCreate: errors.New("card declined")}
	svc := newBillingService(t, ledgerRepo, customers, gateway)

	result, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer})
	require.Error(t, err, "a vendor failure must surface in the aggregated error")
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Invoiced, "remaining vendors must still be billed")

	var errored, invoiced *models.SeasonalLedger
	for _, row := range ledgerRepo.updated {
		switch row.BillingStatus {
		case enums.LedgerBillingStatusError:
			errored = row
		case enums.LedgerBillingStatusInvoiced:
			invoiced = row
		}
	}
	require.NotNil(t, errored)
	require.NotNil(t, errored.BillingError)
	assert.Contains(t, *errored.BillingError, "card declined")
	assert.Equal(t, failing, errored.FarmerID)

	require.NotNil(t, invoiced)
	assert.Equal(t, healthy, invoiced.FarmerID)
}

func TestRunSeasonSkipsInvoicedUnlessForced(t *testing.T) {
	farmerID := uuid.New()
	row := ledgerRow(farmerID, "100.00")
	row.BillingStatus = enums.LedgerBillingStatusInvoiced
	existing := "in_existing"
	row.HostingInvoiceID = &existing

	ledgerRepo := &stubLedger{rows: []models.SeasonalLedger{row}}
	customers := &stubCustomers{byFarmer: map[uuid.UUID]*models.VendorPlatformCustomer{
		farmerID: {FarmerID: farmerID, StripeCustomerID: "cus_vendor"},
	}}
	gateway := &stubGateway{}
	svc := newBillingService(t, ledgerRepo, customers, gateway)

	result, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AlreadyInvoiced)
	assert.Empty(t, gateway.invoices)

	forced, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer, Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, forced.Invoiced)
	require.Len(t, gateway.invoices, 1)
}

func TestRunSeasonBaseFeeOverride(t *testing.T) {
	farmerID := uuid.New()
	ledgerRepo := &stubLedger{rows: []models.SeasonalLedger{ledgerRow(farmerID, "100.00")}}
	customers := &stubCustomers{byFarmer: map[uuid.UUID]*models.VendorPlatformCustomer{
		farmerID: {FarmerID: farmerID, StripeCustomerID: "cus_vendor"},
	}}
	gateway := &stubGateway{}
	svc := newBillingService(t, ledgerRepo, customers, gateway)

	result, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.SeasonSummer, BaseFee: 80})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Invoiced)

	require.Len(t, gateway.items, 2)
	assert.Equal(t, int64(8000), *gateway.items[0].Amount)
	assert.Equal(t, int64(-1000), *gateway.items[1].Amount)

	final := ledgerRepo.updated[len(ledgerRepo.updated)-1]
	assert.True(t, final.HostingFeeDue.Equal(decimal.NewFromInt(70)), "due %s", final.HostingFeeDue)
}

func TestRunSeasonRejectsInvalidSeason(t *testing.T) {
	svc := newBillingService(t, &stubLedger{}, &stubCustomers{}, &stubGateway{})

	_, err := svc.RunSeason(context.Background(), RunInput{SeasonYear: 2026, Season: enums.Season("monsoon")})
	require.Error(t, err)
}
