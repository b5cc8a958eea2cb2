package models

import (
	"time"

	"github.com/google/uuid"
)

// BuyerCustomer maps a shopper to their gateway customer record, created
// lazily on the first native payment-sheet checkout.
type BuyerCustomer struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	StripeCustomerID string    `gorm:"column:stripe_customer_id;not null;uniqueIndex"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
