package models

import (
	"time"

	"github.com/google/uuid"
)

// Farmer is a marketplace vendor profile owned by a platform user.
type Farmer struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	FarmName         string                  `gorm:"column:farm_name;not null"`
	Email            string                  `gorm:"column:email;not null"`
	StripeAccount    *VendorStripeAccount    `gorm:"foreignKey:FarmerID"`
	PlatformCustomer *VendorPlatformCustomer `gorm:"foreignKey:FarmerID"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
