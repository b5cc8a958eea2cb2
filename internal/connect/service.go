package connect

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/farmcrate/farmcrate-backend/internal/vendors"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

// OnboardResult carries the hosted onboarding link for a farmer.
type OnboardResult struct {
	StripeAccountID string `json:"stripe_account_id"`
	OnboardingURL   string `json:"onboarding_url"`
}

// BillingSetupResult carries what the client needs to collect a payment method
// for seasonal hosting invoices.
type BillingSetupResult struct {
	StripeCustomerID        string `json:"stripe_customer_id"`
	SetupIntentClientSecret string `json:"setup_intent_client_secret"`
}

// AccountStatus summarizes a farmer's payout readiness.
type AccountStatus struct {
	StripeAccountID  string                     `json:"stripe_account_id"`
	Status           enums.ConnectAccountStatus `json:"status"`
	ChargesEnabled   bool                       `json:"charges_enabled"`
	PayoutsEnabled   bool                       `json:"payouts_enabled"`
	DetailsSubmitted bool                       `json:"details_submitted"`
	BillingReady     bool                       `json:"billing_ready"`
}

// Service manages farmer enrollment with the payment gateway.
type Service interface {
	Onboard(ctx context.Context, farmerID uuid.UUID) (*OnboardResult, error)
	SetupBilling(ctx context.Context, farmerID uuid.UUID) (*BillingSetupResult, error)
	Status(ctx context.Context, farmerID uuid.UUID) (*AccountStatus, error)
}

// ServiceParams lists the dependencies a connect service needs.
type ServiceParams struct {
	Repo    vendors.Repository
	Gateway StripeConnectClient
	Stripe  config.StripeConfig
	Logger  *logger.Logger
}

type service struct {
	repo    vendors.Repository
	gateway StripeConnectClient
	stripe  config.StripeConfig
	logg    *logger.Logger
}

// NewService wires a connect service from the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("stripe connect client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		gateway: params.Gateway,
		stripe:  params.Stripe,
		logg:    params.Logger,
	}, nil
}

// Onboard creates the farmer's express account on first call and always
// returns a fresh hosted onboarding link. Re-running onboarding for an
// existing account just mints a new link.
func (s *service) Onboard(ctx context.Context, farmerID uuid.UUID) (*OnboardResult, error) {
	farmer, err := s.loadFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	accountID := ""
	if farmer.StripeAccount != nil {
		accountID = farmer.StripeAccount.StripeAccountID
	} else {
		created, err := s.gateway.CreateAccount(ctx, &stripe.AccountParams{
			Type:  stripe.String(string(stripe.AccountTypeExpress)),
			Email: stripe.String(farmer.Email),
			Capabilities: &stripe.AccountCapabilitiesParams{
				CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
				Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
			},
			Metadata: map[string]string{"farmer_id": farmer.ID.String()},
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating connected account")
		}

		record := &models.VendorStripeAccount{
			ID:              uuid.New(),
			FarmerID:        farmer.ID,
			StripeAccountID: created.ID,
			AccountStatus:   enums.ConnectAccountStatusPending,
		}
		if err := s.repo.CreateStripeAccount(ctx, record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting connected account")
		}
		accountID = created.ID
	}

	link, err := s.gateway.CreateAccountLink(ctx, &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(s.stripe.OnboardRefreshURL),
		ReturnURL:  stripe.String(s.stripe.OnboardReturnURL),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating onboarding link")
	}

	return &OnboardResult{
		StripeAccountID: accountID,
		OnboardingURL:   link.URL,
	}, nil
}

// SetupBilling ensures the farmer has a platform-side customer and opens a
// setup intent so the client can attach a default payment method for seasonal
// hosting invoices.
func (s *service) SetupBilling(ctx context.Context, farmerID uuid.UUID) (*BillingSetupResult, error) {
	farmer, err := s.loadFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	customerID := ""
	if farmer.PlatformCustomer != nil {
		customerID = farmer.PlatformCustomer.StripeCustomerID
	} else {
		created, err := s.gateway.CreateCustomer(ctx, &stripe.CustomerParams{
			Email: stripe.String(farmer.Email),
			Name:  stripe.String(farmer.FarmName),
			Metadata: map[string]string{
				"farmer_id": farmer.ID.String(),
				"purpose":   "seasonal_hosting",
			},
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating platform customer")
		}

		record := &models.VendorPlatformCustomer{
			ID:               uuid.New(),
			FarmerID:         farmer.ID,
			StripeCustomerID: created.ID,
		}
		if err := s.repo.CreatePlatformCustomer(ctx, record); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting platform customer")
		}
		customerID = created.ID
	}

	intent, err := s.gateway.CreateSetupIntent(ctx, &stripe.SetupIntentParams{
		Customer: stripe.String(customerID),
		Usage:    stripe.String("off_session"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating setup intent")
	}

	return &BillingSetupResult{
		StripeCustomerID:        customerID,
		SetupIntentClientSecret: intent.ClientSecret,
	}, nil
}

// Status reads payout readiness from the local mirror. The mirror is kept
// current by account.updated webhooks, not by polling the gateway.
func (s *service) Status(ctx context.Context, farmerID uuid.UUID) (*AccountStatus, error) {
	farmer, err := s.loadFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	status := &AccountStatus{
		Status:       enums.ConnectAccountStatusPending,
		BillingReady: farmer.PlatformCustomer != nil,
	}
	if farmer.StripeAccount != nil {
		status.StripeAccountID = farmer.StripeAccount.StripeAccountID
		status.Status = farmer.StripeAccount.AccountStatus
		status.ChargesEnabled = farmer.StripeAccount.ChargesEnabled
		status.PayoutsEnabled = farmer.StripeAccount.PayoutsEnabled
		status.DetailsSubmitted = farmer.StripeAccount.DetailsSubmitted
	}
	return status, nil
}

func (s *service) loadFarmer(ctx context.Context, farmerID uuid.UUID) (*models.Farmer, error) {
	if farmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "farmer id is required")
	}
	farmer, err := s.repo.GetFarmerByID(ctx, farmerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading farmer")
	}
	if farmer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "farmer not found")
	}
	return farmer, nil
}
