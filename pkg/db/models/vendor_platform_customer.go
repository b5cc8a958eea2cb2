package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorPlatformCustomer is the gateway customer record the platform uses to
// bill a farmer for hosting fees. Distinct from the customer records used to
// charge shoppers.
type VendorPlatformCustomer struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID         uuid.UUID `gorm:"column:farmer_id;type:uuid;not null;uniqueIndex"`
	StripeCustomerID string    `gorm:"column:stripe_customer_id;not null;uniqueIndex"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
