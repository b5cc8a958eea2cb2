package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/farmcrate/farmcrate-backend/internal/fees"
	"github.com/farmcrate/farmcrate-backend/internal/ledger"
	"github.com/farmcrate/farmcrate-backend/internal/orders"
	"github.com/farmcrate/farmcrate-backend/internal/vendors"
	"github.com/farmcrate/farmcrate-backend/pkg/config"
	"github.com/farmcrate/farmcrate-backend/pkg/db"
	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
	"github.com/farmcrate/farmcrate-backend/pkg/logger"
)

// errAlreadySettled is an internal sentinel: the payment intent already has an
// order row, so the delivery is a duplicate and must be acked without writes.
var errAlreadySettled = errors.New("payment intent already settled")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams lists the dependencies the webhook reconciler needs.
type ServiceParams struct {
	Vendors           vendors.Repository
	Orders            orders.Repository
	Ledger            ledger.Repository
	TransactionRunner txRunner
	Billing           config.BillingConfig
	Logger            *logger.Logger
}

// Service turns verified gateway events into order rows, ledger accruals and
// mirror updates. Unknown event types are acked so the gateway stops
// retrying them.
type Service struct {
	vendors  vendors.Repository
	orders   orders.Repository
	ledger   ledger.Repository
	txRunner txRunner
	billing  config.BillingConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		vendors:  params.Vendors,
		orders:   params.Orders,
		ledger:   params.Ledger,
		txRunner: params.TransactionRunner,
		billing:  params.Billing,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	occurredAt := time.Now().UTC()
	if event.Created > 0 {
		occurredAt = time.Unix(event.Created, 0).UTC()
	}
	ctx = s.logg.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.handleSessionCompleted(ctx, &session, occurredAt)

	case stripe.EventTypePaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		return s.handlePaymentIntentSucceeded(ctx, &intent, occurredAt)

	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account event")
		}
		return s.syncAccount(ctx, &account)

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &sub, event.Type == stripe.EventTypeCustomerSubscriptionDeleted)

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
		}
		return s.handleChargeRefunded(ctx, &charge, occurredAt)

	case stripe.EventTypeChargeDisputeCreated:
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode dispute event")
		}
		return s.handleDisputeCreated(ctx, &dispute)

	case stripe.EventTypeInvoicePaymentSucceeded:
		s.logg.Info(ctx, "hosting invoice payment succeeded")
		return nil

	default:
		return nil
	}
}

// handleSessionCompleted settles the order behind a paid hosted checkout.
// Sessions that completed without payment are acked untouched.
func (s *Service) handleSessionCompleted(ctx context.Context, session *stripe.CheckoutSession, occurredAt time.Time) error {
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logg.Info(ctx, fmt.Sprintf("checkout session %s completed unpaid (%s), skipping", session.ID, session.PaymentStatus))
		return nil
	}
	if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing payment intent")
	}

	sessionID := session.ID
	return s.settleOrder(ctx, settlement{
		PaymentIntentID: session.PaymentIntent.ID,
		SessionID:       &sessionID,
		GrossCents:      session.AmountTotal,
		Currency:        string(session.Currency),
		Metadata:        session.Metadata,
		OccurredAt:      occurredAt,
	})
}

// handlePaymentIntentSucceeded settles intents created by the in-app payment
// sheet. Intents without marketplace metadata (or already settled through the
// session path) are acked without writes.
func (s *Service) handlePaymentIntentSucceeded(ctx context.Context, intent *stripe.PaymentIntent, occurredAt time.Time) error {
	if intent.Metadata["farmer_id"] == "" {
		s.logg.Info(ctx, fmt.Sprintf("payment intent %s has no marketplace metadata, skipping", intent.ID))
		return nil
	}
	return s.settleOrder(ctx, settlement{
		PaymentIntentID: intent.ID,
		GrossCents:      intent.Amount,
		Currency:        string(intent.Currency),
		Metadata:        intent.Metadata,
		OccurredAt:      occurredAt,
	})
}

type settlement struct {
	PaymentIntentID string
	SessionID       *string
	GrossCents      int64
	Currency        string
	Metadata        map[string]string
	OccurredAt      time.Time
}

// settleOrder writes the order row and the vendor's seasonal accrual in one
// transaction. The unique payment-intent constraint makes redelivery safe: a
// second settlement of the same intent is detected and acked.
func (s *Service) settleOrder(ctx context.Context, in settlement) error {
	buyerID, err := uuid.Parse(in.Metadata["user_id"])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "settlement metadata missing user id")
	}
	farmerID, err := uuid.Parse(in.Metadata["farmer_id"])
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "settlement metadata missing farmer id")
	}
	if in.GrossCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "settlement amount must not be negative")
	}

	feeCents, ok := parseCents(in.Metadata["platform_fee_cents"])
	if !ok {
		split, splitErr := fees.ComputeSplit(in.GrossCents, s.billing.CommissionRateBps)
		if splitErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, splitErr, "computing fee split")
		}
		feeCents = split.PlatformFeeCents
	}
	vendorCents := in.GrossCents - feeCents
	if vendorCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "platform fee exceeds settlement amount")
	}

	currency := in.Currency
	if currency == "" {
		currency = "usd"
	}
	metadataJSON, err := json.Marshal(in.Metadata)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serializing settlement metadata")
	}

	season, year := enums.SeasonOf(in.OccurredAt)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		ledgerRepo := s.ledger.WithTx(tx)

		existing, err := orderRepo.GetByPaymentIntentID(ctx, in.PaymentIntentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errAlreadySettled
		}

		order := &models.MarketplaceOrder{
			ID:                      uuid.New(),
			BuyerUserID:             buyerID,
			FarmerID:                farmerID,
			StripePaymentIntentID:   in.PaymentIntentID,
			StripeCheckoutSessionID: in.SessionID,
			ApplicationFeeCents:     feeCents,
			TransferCents:           vendorCents,
			TotalCents:              in.GrossCents,
			Currency:                currency,
			Status:                  enums.OrderStatusCompleted,
			Metadata:                metadataJSON,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errAlreadySettled
			}
			return err
		}

		return ledgerRepo.AccrueSale(ctx, farmerID, year, season, fees.CentsToDecimal(vendorCents))
	})
	if errors.Is(err, errAlreadySettled) {
		s.logg.Info(ctx, fmt.Sprintf("payment intent %s already settled, acking duplicate", in.PaymentIntentID))
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling order")
	}

	s.logg.Info(s.logg.WithFarmerID(ctx, farmerID.String()),
		fmt.Sprintf("settled order for intent %s: gross=%d fee=%d vendor=%d", in.PaymentIntentID, in.GrossCents, feeCents, vendorCents))
	return nil
}

// syncAccount refreshes the local payout-readiness mirror from an
// account.updated event. Accounts we never issued are acked and logged.
func (s *Service) syncAccount(ctx context.Context, account *stripe.Account) error {
	stored, err := s.vendors.GetStripeAccountByGatewayID(ctx, account.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading connected account")
	}
	if stored == nil {
		s.logg.Warn(ctx, fmt.Sprintf("account.updated for unknown account %s", account.ID))
		return nil
	}

	stored.ChargesEnabled = account.ChargesEnabled
	stored.PayoutsEnabled = account.PayoutsEnabled
	stored.DetailsSubmitted = account.DetailsSubmitted
	stored.AccountStatus = deriveAccountStatus(account)

	if err := s.vendors.UpdateStripeAccount(ctx, stored); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating connected account")
	}

	s.logg.Info(s.logg.WithFarmerID(ctx, stored.FarmerID.String()),
		fmt.Sprintf("account %s now %s (charges=%t payouts=%t)", account.ID, stored.AccountStatus, stored.ChargesEnabled, stored.PayoutsEnabled))
	return nil
}

func deriveAccountStatus(account *stripe.Account) enums.ConnectAccountStatus {
	if account.Requirements != nil &&
		strings.HasPrefix(string(account.Requirements.DisabledReason), "rejected") {
		return enums.ConnectAccountStatusRejected
	}
	if account.ChargesEnabled && account.PayoutsEnabled {
		return enums.ConnectAccountStatusEnabled
	}
	if account.DetailsSubmitted {
		return enums.ConnectAccountStatusRestricted
	}
	return enums.ConnectAccountStatusPending
}

// syncSubscription mirrors the hosting subscription state. The farmer is
// resolved from the stored row, the subscription metadata, or the platform
// customer, in that order.
func (s *Service) syncSubscription(ctx context.Context, sub *stripe.Subscription, deleted bool) error {
	stored, err := s.vendors.GetSubscriptionByGatewayID(ctx, sub.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading subscription")
	}

	farmerID := uuid.Nil
	switch {
	case stored != nil:
		farmerID = stored.FarmerID
	case sub.Metadata["farmer_id"] != "":
		farmerID, err = uuid.Parse(sub.Metadata["farmer_id"])
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription metadata has malformed farmer id")
		}
	case sub.Customer != nil && sub.Customer.ID != "":
		customer, err := s.vendors.GetPlatformCustomerByGatewayID(ctx, sub.Customer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading platform customer")
		}
		if customer != nil {
			farmerID = customer.FarmerID
		}
	}
	if farmerID == uuid.Nil {
		s.logg.Warn(ctx, fmt.Sprintf("subscription %s cannot be matched to a farmer", sub.ID))
		return nil
	}

	status := enums.SubscriptionStatusInactive
	if deleted {
		status = enums.SubscriptionStatusCanceled
	} else if parsed, parseErr := enums.ParseSubscriptionStatus(string(sub.Status)); parseErr == nil {
		status = parsed
	}

	periodStart, periodEnd := subscriptionPeriod(sub)

	if stored == nil {
		record := &models.VendorSubscription{
			ID:                   uuid.New(),
			FarmerID:             farmerID,
			StripeSubscriptionID: sub.ID,
			Status:               status,
			CurrentPeriodStart:   periodStart,
			CurrentPeriodEnd:     periodEnd,
			CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		}
		if err := s.vendors.CreateSubscription(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating subscription mirror")
		}
		return nil
	}

	stored.Status = status
	stored.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if periodStart != nil {
		stored.CurrentPeriodStart = periodStart
	}
	if periodEnd != nil {
		stored.CurrentPeriodEnd = periodEnd
	}
	if err := s.vendors.UpdateSubscription(ctx, stored); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating subscription mirror")
	}
	return nil
}

func subscriptionPeriod(sub *stripe.Subscription) (*time.Time, *time.Time) {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, nil
	}
	item := sub.Items.Data[0]
	var start, end *time.Time
	if item.CurrentPeriodStart > 0 {
		t := time.Unix(item.CurrentPeriodStart, 0).UTC()
		start = &t
	}
	if item.CurrentPeriodEnd > 0 {
		t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
		end = &t
	}
	return start, end
}

// handleChargeRefunded flips the order to refunded and backs the vendor's
// share out of the seasonal ledger, pro-rata for partial refunds.
func (s *Service) handleChargeRefunded(ctx context.Context, charge *stripe.Charge, occurredAt time.Time) error {
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		s.logg.Warn(ctx, fmt.Sprintf("charge %s refunded without payment intent", charge.ID))
		return nil
	}

	order, err := s.orders.GetByPaymentIntentID(ctx, charge.PaymentIntent.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order for refund")
	}
	if order == nil {
		s.logg.Warn(ctx, fmt.Sprintf("refund for unknown payment intent %s", charge.PaymentIntent.ID))
		return nil
	}
	if order.Status == enums.OrderStatusRefunded {
		return nil
	}

	refundedVendorCents := order.TransferCents
	if charge.AmountRefunded > 0 && order.TotalCents > 0 && charge.AmountRefunded < order.TotalCents {
		refundedVendorCents = order.TransferCents * charge.AmountRefunded / order.TotalCents
	}

	season, year := enums.SeasonOf(occurredAt)

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusRefunded); err != nil {
			return err
		}
		return s.ledger.WithTx(tx).AccrueRefund(ctx, order.FarmerID, year, season, fees.CentsToDecimal(refundedVendorCents))
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording refund")
	}

	s.logg.Info(s.logg.WithFarmerID(ctx, order.FarmerID.String()),
		fmt.Sprintf("refunded order %s: vendor share backed out %d cents", order.ID, refundedVendorCents))
	return nil
}

// handleDisputeCreated flags the order; money movement is left to the dispute
// lifecycle on the gateway side.
func (s *Service) handleDisputeCreated(ctx context.Context, dispute *stripe.Dispute) error {
	if dispute.PaymentIntent == nil || dispute.PaymentIntent.ID == "" {
		s.logg.Warn(ctx, fmt.Sprintf("dispute %s without payment intent", dispute.ID))
		return nil
	}

	order, err := s.orders.GetByPaymentIntentID(ctx, dispute.PaymentIntent.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order for dispute")
	}
	if order == nil {
		s.logg.Warn(ctx, fmt.Sprintf("dispute for unknown payment intent %s", dispute.PaymentIntent.ID))
		return nil
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusDisputed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flagging disputed order")
	}
	s.logg.Warn(ctx, fmt.Sprintf("order %s disputed (%s)", order.ID, dispute.Reason))
	return nil
}

func parseCents(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
