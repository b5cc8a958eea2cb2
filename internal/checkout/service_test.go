package checkout

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/farmcrate/farmcrate-backend/internal/cart"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

type stubVendorLoader struct {
	farmers map[uuid.UUID]*models.Farmer
}

func (s *stubVendorLoader) GetFarmerByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error) {
	return s.farmers[id], nil
}

type stubGateway struct {
	calls   int
	params  []*stripe.CheckoutSessionParams
	failOn  int
	failErr error
}

func (s *stubGateway) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.calls++
	if s.failErr != nil && s.calls == s.failOn {
		return nil, s.failErr
	}
	s.params = append(s.params, params)
	return &stripe.CheckoutSession{
		ID:  fmt.Sprintf("cs_test_%d", s.calls),
		URL: fmt.Sprintf("https://checkout.example/%d", s.calls),
	}, nil
}

func payableFarmer(name string) *models.Farmer {
	id := uuid.New()
	return &models.Farmer{
		ID:       id,
		UserID:   uuid.New(),
		FarmName: name,
		StripeAccount: &models.VendorStripeAccount{
			ID:              uuid.New(),
			FarmerID:        id,
			StripeAccountID: "acct_" + name,
			ChargesEnabled:  true,
		},
	}
}

func newTestService(t *testing.T, loader *stubVendorLoader, gateway *stubGateway) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Vendors: loader,
		Gateway: gateway,
		Stripe: config.StripeConfig{
			SuccessURL: "https://farmcrate.example/success",
			CancelURL:  "https://farmcrate.example/cancel",
		},
		Billing: config.BillingConfig{CommissionRateBps: 1200},
		Logger:  logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestCreateSessionsSplitsCartPerVendor(t *testing.T) {
	farmerA := payableFarmer("sunrise")
	farmerB := payableFarmer("hilltop")
	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{
		farmerA.ID: farmerA,
		farmerB.ID: farmerB,
	}}
	gateway := &stubGateway{}
	svc := newTestService(t, loader, gateway)

	input := CreateSessionsInput{
		BuyerUserID: uuid.New(),
		BuyerEmail:  "buyer@example.com",
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: farmerA.ID, Name: "tomatoes", UnitPriceCents: 450, Quantity: 2},
			{ProductID: uuid.New(), FarmerID: farmerB.ID, Name: "honey", UnitPriceCents: 1200, Quantity: 1},
			{ProductID: uuid.New(), FarmerID: farmerA.ID, Name: "basil", UnitPriceCents: 347, Quantity: 1},
		},
		Delivery: DeliveryDetails{Method: "pickup"},
	}

	sessions, err := svc.CreateSessions(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// farmer A: 450*2 + 347 = 1247 gross, 12% fee rounds to 150
	assert.Equal(t, farmerA.ID, sessions[0].FarmerID)
	assert.Equal(t, int64(1247), sessions[0].SubtotalCents)
	assert.Equal(t, int64(150), sessions[0].PlatformFeeCents)
	assert.Equal(t, int64(1097), sessions[0].VendorCents)
	assert.Equal(t, "cs_test_1", sessions[0].SessionID)

	assert.Equal(t, farmerB.ID, sessions[1].FarmerID)
	assert.Equal(t, int64(1200), sessions[1].SubtotalCents)
	assert.Equal(t, int64(144), sessions[1].PlatformFeeCents)
	assert.Equal(t, int64(1056), sessions[1].VendorCents)

	require.Len(t, gateway.params, 2)
	first := gateway.params[0]
	require.NotNil(t, first.PaymentIntentData)
	assert.Equal(t, int64(150), *first.PaymentIntentData.ApplicationFeeAmount)
	assert.Equal(t, farmerA.StripeAccount.StripeAccountID, *first.PaymentIntentData.TransferData.Destination)
	assert.Equal(t, farmerA.StripeAccount.StripeAccountID, *first.PaymentIntentData.OnBehalfOf)
	assert.Equal(t, "buyer@example.com", *first.CustomerEmail)

	md := first.Metadata
	assert.Equal(t, input.BuyerUserID.String(), md["user_id"])
	assert.Equal(t, farmerA.ID.String(), md["farmer_id"])
	assert.Equal(t, "150", md["platform_fee_cents"])
	assert.Equal(t, "1097", md["vendor_amount_cents"])
	assert.Equal(t, "pickup", md["delivery_method"])
	assert.Contains(t, md["items"], "tomatoes")
	assert.Contains(t, md["items"], "basil")
	assert.NotContains(t, md["items"], "honey")

	require.Len(t, first.LineItems, 2)
	assert.Equal(t, int64(450), *first.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *first.LineItems[0].Quantity)
}

func TestCreateSessionsAppendsOrderFeeLineItems(t *testing.T) {
	farmer := payableFarmer("sunrise")
	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{farmer.ID: farmer}}
	gateway := &stubGateway{}
	svc := newTestService(t, loader, gateway)

	sessions, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: farmer.ID, Name: "eggs", ImageURL: "https://img.example/eggs.jpg", UnitPriceCents: 650, Quantity: 1},
		},
		Delivery:         DeliveryDetails{Method: "delivery", Address: "12 Orchard Ln", Window: "Sat 9-11am"},
		DeliveryFeeCents: 300,
		ServiceFeeCents:  150,
	})
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	// gross = 650 + 300 + 150 = 1100, 12% fee = 132
	assert.Equal(t, int64(1100), sessions[0].SubtotalCents)
	assert.Equal(t, int64(132), sessions[0].PlatformFeeCents)
	assert.Equal(t, int64(968), sessions[0].VendorCents)

	params := gateway.params[0]
	require.Len(t, params.LineItems, 3)
	assert.Equal(t, "eggs", *params.LineItems[0].PriceData.ProductData.Name)
	require.Len(t, params.LineItems[0].PriceData.ProductData.Images, 1)
	assert.Equal(t, "https://img.example/eggs.jpg", *params.LineItems[0].PriceData.ProductData.Images[0])
	assert.Equal(t, "Delivery Fee", *params.LineItems[1].PriceData.ProductData.Name)
	assert.Equal(t, int64(300), *params.LineItems[1].PriceData.UnitAmount)
	assert.Equal(t, "Service Fee", *params.LineItems[2].PriceData.ProductData.Name)
	assert.Equal(t, int64(150), *params.LineItems[2].PriceData.UnitAmount)

	md := params.Metadata
	assert.Equal(t, "Sat 9-11am", md["delivery_window"])
	assert.Equal(t, "300", md["delivery_fee_cents"])
	assert.Equal(t, "150", md["service_fee_cents"])
	assert.Equal(t, "132", md["platform_fee_cents"])
}

func TestCreateSessionsFeesOnlyOnFirstVendorSession(t *testing.T) {
	farmerA := payableFarmer("sunrise")
	farmerB := payableFarmer("hilltop")
	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{
		farmerA.ID: farmerA,
		farmerB.ID: farmerB,
	}}
	gateway := &stubGateway{}
	svc := newTestService(t, loader, gateway)

	sessions, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: farmerA.ID, Name: "squash", UnitPriceCents: 1000, Quantity: 1},
			{ProductID: uuid.New(), FarmerID: farmerB.ID, Name: "honey", UnitPriceCents: 2000, Quantity: 1},
		},
		Delivery:         DeliveryDetails{Method: "delivery", Address: "12 Orchard Ln"},
		DeliveryFeeCents: 500,
	})
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, int64(1500), sessions[0].SubtotalCents)
	assert.Equal(t, int64(180), sessions[0].PlatformFeeCents)
	assert.Equal(t, int64(2000), sessions[1].SubtotalCents)
	assert.Equal(t, int64(240), sessions[1].PlatformFeeCents)

	require.Len(t, gateway.params, 2)
	require.Len(t, gateway.params[0].LineItems, 2)
	assert.Equal(t, "Delivery Fee", *gateway.params[0].LineItems[1].PriceData.ProductData.Name)
	require.Len(t, gateway.params[1].LineItems, 1, "order fees must not repeat on later vendor sessions")
	assert.NotContains(t, gateway.params[1].Metadata, "delivery_fee_cents")
}

func TestCreateSessionsRejectsNegativeFees(t *testing.T) {
	farmer := payableFarmer("sunrise")
	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{farmer.ID: farmer}}
	gateway := &stubGateway{}
	svc := newTestService(t, loader, gateway)

	_, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: farmer.ID, Name: "eggs", UnitPriceCents: 650, Quantity: 1},
		},
		Delivery:         DeliveryDetails{Method: "pickup"},
		DeliveryFeeCents: -100,
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
	assert.Zero(t, gateway.calls)
}

func TestCreateSessionsRejectsUnpayableVendorBeforeGateway(t *testing.T) {
	payable := payableFarmer("sunrise")
	unpayable := payableFarmer("hilltop")
	unpayable.StripeAccount.ChargesEnabled = false

	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{
		payable.ID:   payable,
		unpayable.ID: unpayable,
	}}
	gateway := &stubGateway{}
	svc := newTestService(t, loader, gateway)

	_, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: payable.ID, Name: "eggs", UnitPriceCents: 650, Quantity: 1},
			{ProductID: uuid.New(), FarmerID: unpayable.ID, Name: "jam", UnitPriceCents: 800, Quantity: 1},
		},
		Delivery: DeliveryDetails{Method: "pickup"},
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeVendorNotPayable, coded.Code())
	assert.Zero(t, gateway.calls, "no session may be created when any vendor is unpayable")
}

func TestCreateSessionsMissingStripeAccountIsUnpayable(t *testing.T) {
	farmer := payableFarmer("sunrise")
	farmer.StripeAccount = nil

	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{farmer.ID: farmer}}
	gateway := &stubGateway{}
	svc := newTestService(t, loader, gateway)

	_, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: farmer.ID, Name: "eggs", UnitPriceCents: 650, Quantity: 1},
		},
		Delivery: DeliveryDetails{Method: "delivery", Address: "12 Orchard Ln"},
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeVendorNotPayable, coded.Code())
}

func TestCreateSessionsUnknownFarmer(t *testing.T) {
	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{}}
	gateway := &stubGateway{}
	svc := newTestService(t, loader, gateway)

	_, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: uuid.New(), Name: "eggs", UnitPriceCents: 650, Quantity: 1},
		},
		Delivery: DeliveryDetails{Method: "pickup"},
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestCreateSessionsEmptyCart(t *testing.T) {
	svc := newTestService(t, &stubVendorLoader{}, &stubGateway{})

	_, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Delivery:    DeliveryDetails{Method: "pickup"},
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestCreateSessionsGatewayFailure(t *testing.T) {
	farmer := payableFarmer("sunrise")
	loader := &stubVendorLoader{farmers: map[uuid.UUID]*models.Farmer{farmer.ID: farmer}}
	gateway := &stubGateway{failOn: 1, failErr: fmt.Errorf("stripe unavailable")}
	svc := newTestService(t, loader, gateway)

	_, err := svc.CreateSessions(context.Background(), CreateSessionsInput{
		BuyerUserID: uuid.New(),
		Items: []cart.Item{
			{ProductID: uuid.New(), FarmerID: farmer.ID, Name: "eggs", UnitPriceCents: 650, Quantity: 1},
		},
		Delivery: DeliveryDetails{Method: "pickup"},
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeDependency, coded.Code())
}
