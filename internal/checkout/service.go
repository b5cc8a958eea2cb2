package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/farmcrate/farmcrate-backend/internal/cart"
	"github.com/farmcrate/farmcrate-backend/internal/fees"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

const checkoutCurrency = "usd"

type vendorLoader interface {
	GetFarmerByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error)
}

// DeliveryDetails captures how the buyer wants the order handed over.
type DeliveryDetails struct {
	Method  string `json:"method" validate:"required,oneof=pickup delivery"`
	Address string `json:"address"`
	Window  string `json:"window"`
	Notes   string `json:"notes"`
}

// CreateSessionsInput is everything needed to open hosted checkout for a cart.
// The optional delivery and service fees are order-level charges; with a
// multi-vendor cart they ride on the first vendor's session.
type CreateSessionsInput struct {
	BuyerUserID      uuid.UUID
	BuyerEmail       string
	Items            []cart.Item
	Delivery         DeliveryDetails
	DeliveryFeeCents int64
	ServiceFeeCents  int64
}

// VendorSession is one hosted checkout session covering a single farmer's
// slice of the cart.
type VendorSession struct {
	FarmerID         uuid.UUID `json:"farmer_id"`
	FarmName         string    `json:"farm_name"`
	SessionID        string    `json:"session_id"`
	SessionURL       string    `json:"session_url"`
	SubtotalCents    int64     `json:"subtotal_cents"`
	PlatformFeeCents int64     `json:"platform_fee_cents"`
	VendorCents      int64     `json:"vendor_cents"`
}

// Service opens hosted checkout sessions with the platform fee attached.
type Service interface {
	CreateSessions(ctx context.Context, input CreateSessionsInput) ([]VendorSession, error)
}

// ServiceParams lists the dependencies a checkout service needs.
type ServiceParams struct {
	Vendors vendorLoader
	Gateway StripeCheckoutClient
	Stripe  config.StripeConfig
	Billing config.BillingConfig
	Logger  *logger.Logger
}

type service struct {
	vendors vendorLoader
	gateway StripeCheckoutClient
	stripe  config.StripeConfig
	billing config.BillingConfig
	logg    *logger.Logger
}

// NewService wires a checkout service from the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor loader required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe checkout client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		vendors: params.Vendors,
		gateway: params.Gateway,
		stripe:  params.Stripe,
		billing: params.Billing,
		logg:    params.Logger,
	}, nil
}

// CreateSessions partitions the cart per farmer and opens one hosted session
// per vendor group. Every vendor must be payable before the first session is
// created, so a bad vendor late in the cart never leaves earlier sessions
// dangling.
func (s *service) CreateSessions(ctx context.Context, input CreateSessionsInput) ([]VendorSession, error) {
	if input.BuyerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer user id is required")
	}
	if input.DeliveryFeeCents < 0 || input.ServiceFeeCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fees must not be negative")
	}

	groups, err := cart.PartitionByFarmer(input.Items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart")
	}

	farmers := make(map[uuid.UUID]*models.Farmer, len(groups))
	for _, group := range groups {
		farmer, err := s.vendors.GetFarmerByID(ctx, group.FarmerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading farmer")
		}
		if farmer == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "farmer not found").
				WithDetails(map[string]string{"farmer_id": group.FarmerID.String()})
		}
		if farmer.StripeAccount == nil || !farmer.StripeAccount.ChargesEnabled {
			return nil, pkgerrors.New(pkgerrors.CodeVendorNotPayable, "vendor is not set up to receive payments").
				WithDetails(map[string]string{"farmer_id": group.FarmerID.String()})
		}
		farmers[group.FarmerID] = farmer
	}

	sessions := make([]VendorSession, 0, len(groups))
	for i, group := range groups {
		farmer := farmers[group.FarmerID]

		// Order-level fees count toward the gross the commission is taken on.
		var extras orderExtras
		if i == 0 {
			extras = orderExtras{
				DeliveryFeeCents: input.DeliveryFeeCents,
				ServiceFeeCents:  input.ServiceFeeCents,
			}
		}

		split, err := fees.ComputeSplit(group.SubtotalCents+extras.total(), s.billing.CommissionRateBps)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "computing fee split")
		}

		params, err := s.sessionParams(input, group, farmer, split, extras)
		if err != nil {
			return nil, err
		}

		created, err := s.gateway.CreateSession(ctx, params)
		if err != nil {
			s.logg.Error(s.logg.WithFarmerID(ctx, farmer.ID.String()), "creating checkout session", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway rejected checkout session")
		}

		sessions = append(sessions, VendorSession{
			FarmerID:         farmer.ID,
			FarmName:         farmer.FarmName,
			SessionID:        created.ID,
			SessionURL:       created.URL,
			SubtotalCents:    split.GrossCents,
			PlatformFeeCents: split.PlatformFeeCents,
			VendorCents:      split.VendorCents,
		})
	}

	return sessions, nil
}

// orderExtras are the order-level fee amounts attached to one session.
type orderExtras struct {
	DeliveryFeeCents int64
	ServiceFeeCents  int64
}

func (e orderExtras) total() int64 {
	return e.DeliveryFeeCents + e.ServiceFeeCents
}

func (s *service) sessionParams(input CreateSessionsInput, group cart.VendorGroup, farmer *models.Farmer, split fees.Split, extras orderExtras) (*stripe.CheckoutSessionParams, error) {
	metadata, err := sessionMetadata(input, group, split, extras)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building session metadata")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(group.Items)+2)
	for _, item := range group.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.ImageURL != "" {
			productData.Images = []*string{stripe.String(item.ImageURL)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(checkoutCurrency),
				UnitAmount:  stripe.Int64(item.UnitPriceCents),
				ProductData: productData,
			},
		})
	}
	if extras.DeliveryFeeCents > 0 {
		lineItems = append(lineItems, feeLineItem("Delivery Fee", extras.DeliveryFeeCents))
	}
	if extras.ServiceFeeCents > 0 {
		lineItems = append(lineItems, feeLineItem("Service Fee", extras.ServiceFeeCents))
	}

	destination := farmer.StripeAccount.StripeAccountID
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.stripe.SuccessURL),
		CancelURL:  stripe.String(s.stripe.CancelURL),
		LineItems:  lineItems,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(split.PlatformFeeCents),
			OnBehalfOf:           stripe.String(destination),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(destination),
			},
			Metadata: metadata,
		},
		Metadata: metadata,
	}
	if input.BuyerEmail != "" {
		params.CustomerEmail = stripe.String(input.BuyerEmail)
	}
	return params, nil
}

func feeLineItem(name string, amountCents int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(checkoutCurrency),
			UnitAmount: stripe.Int64(amountCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
	}
}

func sessionMetadata(input CreateSessionsInput, group cart.VendorGroup, split fees.Split, extras orderExtras) (map[string]string, error) {
	items, err := json.Marshal(group.Items)
	if err != nil {
		return nil, fmt.Errorf("serializing cart items: %w", err)
	}

	metadata := map[string]string{
		"user_id":             input.BuyerUserID.String(),
		"farmer_id":           group.FarmerID.String(),
		"delivery_method":     input.Delivery.Method,
		"items":               string(items),
		"platform_fee_cents":  strconv.FormatInt(split.PlatformFeeCents, 10),
		"vendor_amount_cents": strconv.FormatInt(split.VendorCents, 10),
	}
	if input.Delivery.Address != "" {
		metadata["delivery_address"] = input.Delivery.Address
	}
	if input.Delivery.Window != "" {
		metadata["delivery_window"] = input.Delivery.Window
	}
	if input.Delivery.Notes != "" {
		metadata["delivery_notes"] = input.Delivery.Notes
	}
	if extras.DeliveryFeeCents > 0 {
		metadata["delivery_fee_cents"] = strconv.FormatInt(extras.DeliveryFeeCents, 10)
	}
	if extras.ServiceFeeCents > 0 {
		metadata["service_fee_cents"] = strconv.FormatInt(extras.ServiceFeeCents, 10)
	}
	return metadata, nil
}
