package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

// VendorSubscription persists the premium-features billing relationship
// between the platform and a farmer. Not authoritative until the gateway
// confirms state via webhook.
type VendorSubscription struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID             uuid.UUID                `gorm:"column:farmer_id;type:uuid;not null;index"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;not null;uniqueIndex"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:text;not null;default:'inactive'"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
