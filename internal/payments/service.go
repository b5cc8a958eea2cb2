package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/farmcrate/farmcrate-backend/internal/cart"
	"github.com/farmcrate/farmcrate-backend/internal/checkout"
	"github.com/farmcrate/farmcrate-backend/internal/fees"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

const paymentCurrency = "usd"

type vendorLoader interface {
	GetFarmerByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error)
}

// CreateIntentsInput is everything needed to fund a mobile payment sheet.
type CreateIntentsInput struct {
	BuyerUserID uuid.UUID
	BuyerEmail  string
	Items       []cart.Item
	Delivery    checkout.DeliveryDetails
}

// VendorIntent is one payment intent covering a single farmer's slice of the cart.
type VendorIntent struct {
	FarmerID         uuid.UUID `json:"farmer_id"`
	FarmName         string    `json:"farm_name"`
	PaymentIntentID  string    `json:"payment_intent_id"`
	ClientSecret     string    `json:"client_secret"`
	SubtotalCents    int64     `json:"subtotal_cents"`
	PlatformFeeCents int64     `json:"platform_fee_cents"`
	VendorCents      int64     `json:"vendor_cents"`
}

// PaymentSheet bundles everything the mobile client needs to present payment.
type PaymentSheet struct {
	CustomerID         string         `json:"customer_id"`
	EphemeralKeySecret string         `json:"ephemeral_key_secret"`
	Intents            []VendorIntent `json:"intents"`
}

// Service funds in-app payment sheets with destination charges.
type Service interface {
	CreateIntents(ctx context.Context, input CreateIntentsInput) (*PaymentSheet, error)
}

// ServiceParams lists the dependencies a payments service needs.
type ServiceParams struct {
	Repo    Repository
	Vendors vendorLoader
	Gateway StripePaymentClient
	Billing config.BillingConfig
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	vendors vendorLoader
	gateway StripePaymentClient
	billing config.BillingConfig
	logg    *logger.Logger
}

// NewService wires a payments service from the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor loader required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe payment client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		vendors: params.Vendors,
		gateway: params.Gateway,
		billing: params.Billing,
		logg:    params.Logger,
	}, nil
}

// CreateIntents partitions the cart per farmer and opens one destination
// charge per vendor group, reusing or lazily creating the buyer's gateway
// customer. Vendors are all verified payable before the first gateway write.
func (s *service) CreateIntents(ctx context.Context, input CreateIntentsInput) (*PaymentSheet, error) {
	if input.BuyerUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer user id is required")
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

	customerID, err := s.ensureBuyerCustomer(ctx, input.BuyerUserID, input.BuyerEmail)
	if err != nil {
		return nil, err
	}

	ephemeralKey, err := s.gateway.CreateEphemeralKey(ctx, &stripe.EphemeralKeyParams{
		Customer:      stripe.String(customerID),
		StripeVersion: stripe.String(stripe.APIVersion),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issuing ephemeral key")
	}

	sheet := &PaymentSheet{
		CustomerID:         customerID,
		EphemeralKeySecret: ephemeralKey.Secret,
		Intents:            make([]VendorIntent, 0, len(groups)),
	}

	for _, group := range groups {
		farmer := farmers[group.FarmerID]

		split, err := fees.ComputeSplit(group.SubtotalCents, s.billing.CommissionRateBps)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "computing fee split")
		}

		metadata, err := intentMetadata(input, group, split)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building intent metadata")
		}

		destination := farmer.StripeAccount.StripeAccountID
		params := &stripe.PaymentIntentParams{
			Amount:               stripe.Int64(split.GrossCents),
			Currency:             stripe.String(paymentCurrency),
			Customer:             stripe.String(customerID),
			ApplicationFeeAmount: stripe.Int64(split.PlatformFeeCents),
			OnBehalfOf:           stripe.String(destination),
			TransferData: &stripe.PaymentIntentTransferDataParams{
				Destination: stripe.String(destination),
			},
			AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
				Enabled: stripe.Bool(true),
			},
			Metadata: metadata,
		}

		intent, err := s.gateway.CreatePaymentIntent(ctx, params)
		if err != nil {
			s.logg.Error(s.logg.WithFarmerID(ctx, farmer.ID.String()), "creating payment intent", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway rejected payment intent")
		}

		sheet.Intents = append(sheet.Intents, VendorIntent{
			FarmerID:         farmer.ID,
			FarmName:         farmer.FarmName,
			PaymentIntentID:  intent.ID,
			ClientSecret:     intent.ClientSecret,
			SubtotalCents:    split.GrossCents,
			PlatformFeeCents: split.PlatformFeeCents,
			VendorCents:      split.VendorCents,
		})
	}

	return sheet, nil
}

func (s *service) ensureBuyerCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	existing, err := s.repo.GetBuyerCustomerByUserID(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading buyer customer")
	}
	if existing != nil {
		return existing.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{"user_id": userID.String()},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}

	created, err := s.gateway.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating gateway customer")
	}

	record := &models.BuyerCustomer{
		ID:               uuid.New(),
		UserID:           userID,
		StripeCustomerID: created.ID,
	}
	if err := s.repo.CreateBuyerCustomer(ctx, record); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting buyer customer")
	}
	return created.ID, nil
}

func intentMetadata(input CreateIntentsInput, group cart.VendorGroup, split fees.Split) (map[string]string, error) {
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
	if input.Delivery.Notes != "" {
		metadata["delivery_notes"] = input.Delivery.Notes
	}
	return metadata, nil
}
