package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

// VendorStripeAccount links a farmer to their gateway connected account.
// Status fields are mutated only by account.updated webhook events.
type VendorStripeAccount struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID         uuid.UUID                  `gorm:"column:farmer_id;type:uuid;not null;uniqueIndex"`
	StripeAccountID  string                     `gorm:"column:stripe_account_id;not null;uniqueIndex"`
	AccountStatus    enums.ConnectAccountStatus `gorm:"column:account_status;type:text;not null;default:'pending'"`
	ChargesEnabled   bool                       `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled   bool                       `gorm:"column:payouts_enabled;not null;default:false"`
	DetailsSubmitted bool                       `gorm:"column:details_submitted;not null;default:false"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
