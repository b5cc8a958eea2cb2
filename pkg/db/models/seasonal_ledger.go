package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

// SeasonalLedger accumulates a farmer's sales for one billing season and
// carries the hosting-fee computation once the billing job has run. One row
// per (farmer, season_year, season_name); webhook reconciler and billing job
// are the only writers.
//
// Amounts are decimal currency units; the cents<->decimal conversion lives at
// the gateway boundary.
type SeasonalLedger struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID         uuid.UUID                 `gorm:"column:farmer_id;type:uuid;not null;uniqueIndex:idx_seasonal_ledgers_farmer_season,priority:1"`
	SeasonYear       int                       `gorm:"column:season_year;not null;uniqueIndex:idx_seasonal_ledgers_farmer_season,priority:2"`
	SeasonName       enums.Season              `gorm:"column:season_name;type:text;not null;uniqueIndex:idx_seasonal_ledgers_farmer_season,priority:3"`
	GrossSales       decimal.Decimal           `gorm:"column:gross_sales;type:numeric(12,2);not null;default:0"`
	Refunds          decimal.Decimal           `gorm:"column:refunds;type:numeric(12,2);not null;default:0"`
	NetSales         decimal.Decimal           `gorm:"column:net_sales;type:numeric(12,2);not null;default:0"`
	DiscountAmount   decimal.Decimal           `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	HostingFeeDue    decimal.Decimal           `gorm:"column:hosting_fee_due;type:numeric(12,2);not null;default:0"`
	BillingStatus    enums.LedgerBillingStatus `gorm:"column:billing_status;type:text;not null;default:'pending'"`
	HostingInvoiceID *string                   `gorm:"column:hosting_invoice_id"`
	BillingError     *string                   `gorm:"column:billing_error"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
