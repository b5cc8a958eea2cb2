package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

// MarketplaceOrder is the durable record of a confirmed payment, created only
// by the webhook reconciler. The payment-intent id doubles as the idempotency
// key: redelivered events must not produce a second row.
//
// Invariant: ApplicationFeeCents + TransferCents == TotalCents.
type MarketplaceOrder struct {
	ID                      uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerUserID             uuid.UUID         `gorm:"column:buyer_user_id;type:uuid;not null;index"`
	FarmerID                uuid.UUID         `gorm:"column:farmer_id;type:uuid;not null;index"`
	StripePaymentIntentID   string            `gorm:"column:stripe_payment_intent_id;not null;uniqueIndex"`
	StripeCheckoutSessionID *string           `gorm:"column:stripe_checkout_session_id"`
	ApplicationFeeCents     int64             `gorm:"column:application_fee_cents;not null"`
	TransferCents           int64             `gorm:"column:transfer_cents;not null"`
	TotalCents              int64             `gorm:"column:total_cents;not null"`
	Currency                string            `gorm:"column:currency;not null;default:'usd'"`
	Status                  enums.OrderStatus `gorm:"column:status;type:text;not null;default:'completed'"`
	Metadata                json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt               time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
