package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ledgersDDL := `
CREATE TABLE IF NOT EXISTS seasonal_ledgers (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  season_year INTEGER NOT NULL,
  season_name TEXT NOT NULL,
  gross_sales NUMERIC NOT NULL DEFAULT 0,
  refunds NUMERIC NOT NULL DEFAULT 0,
  net_sales NUMERIC NOT NULL DEFAULT 0,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  hosting_fee_due NUMERIC NOT NULL DEFAULT 0,
  billing_status TEXT NOT NULL DEFAULT 'pending',
  hosting_invoice_id TEXT,
  billing_error TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (farmer_id, season_year, season_name)
);`
	require.NoError(t, db.Exec(ledgersDDL).Error)
	return db
}

func TestAccrueSaleCreatesAndIncrements(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	farmer := uuid.New()

	require.NoError(t, repo.AccrueSale(ctx, farmer, 2026, enums.SeasonSummer, decimal.RequireFromString("21.94")))
	require.NoError(t, repo.AccrueSale(ctx, farmer, 2026, enums.SeasonSummer, decimal.RequireFromString("10.00")))

	row, err := repo.Get(ctx, farmer, 2026, enums.SeasonSummer)
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.True(t, row.GrossSales.Equal(decimal.RequireFromString("31.94")), "gross=%s", row.GrossSales)
	assert.True(t, row.NetSales.Equal(decimal.RequireFromString("31.94")), "net=%s", row.NetSales)
	assert.True(t, row.Refunds.IsZero())
	assert.Equal(t, enums.LedgerBillingStatusPending, row.BillingStatus)
}

func TestAccrueRefundReducesNet(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	farmer := uuid.New()

	require.NoError(t, repo.AccrueSale(ctx, farmer, 2026, enums.SeasonFall, decimal.RequireFromString("100.00")))
	require.NoError(t, repo.AccrueRefund(ctx, farmer, 2026, enums.SeasonFall, decimal.RequireFromString("25.50")))

	row, err := repo.Get(ctx, farmer, 2026, enums.SeasonFall)
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.True(t, row.GrossSales.Equal(decimal.RequireFromString("100.00")), "gross=%s", row.GrossSales)
	assert.True(t, row.Refunds.Equal(decimal.RequireFromString("25.50")), "refunds=%s", row.Refunds)
	assert.True(t, row.NetSales.Equal(decimal.RequireFromString("74.50")), "net=%s", row.NetSales)
}

func TestSeasonsAreIsolated(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	farmer := uuid.New()

	require.NoError(t, repo.AccrueSale(ctx, farmer, 2026, enums.SeasonSpring, decimal.RequireFromString("40")))
	require.NoError(t, repo.AccrueSale(ctx, farmer, 2026, enums.SeasonSummer, decimal.RequireFromString("60")))

	spring, err := repo.Get(ctx, farmer, 2026, enums.SeasonSpring)
	require.NoError(t, err)
	require.NotNil(t, spring)
	assert.True(t, spring.GrossSales.Equal(decimal.NewFromInt(40)))

	rows, err := repo.ListForSeason(ctx, 2026, enums.SeasonSummer)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, farmer, rows[0].FarmerID)
}

func TestUpdatePersistsBillingOutcome(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	farmer := uuid.New()
	require.NoError(t, repo.AccrueSale(ctx, farmer, 2026, enums.SeasonWinter, decimal.RequireFromString("237.50")))

	row, err := repo.Get(ctx, farmer, 2026, enums.SeasonWinter)
	require.NoError(t, err)
	require.NotNil(t, row)

	invoiceID := "in_test_123"
	row.DiscountAmount = decimal.NewFromInt(23)
	row.HostingFeeDue = decimal.NewFromInt(27)
	row.BillingStatus = enums.LedgerBillingStatusInvoiced
	row.HostingInvoiceID = &invoiceID
	require.NoError(t, repo.Update(ctx, row))

	got, err := repo.Get(ctx, farmer, 2026, enums.SeasonWinter)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, enums.LedgerBillingStatusInvoiced, got.BillingStatus)
	require.NotNil(t, got.HostingInvoiceID)
	assert.Equal(t, invoiceID, *got.HostingInvoiceID)
	assert.True(t, got.HostingFeeDue.Equal(decimal.NewFromInt(27)))
}

func TestAccrueRejectsBadInput(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	err := repo.AccrueSale(ctx, uuid.Nil, 2026, enums.SeasonSummer, decimal.NewFromInt(1))
	require.Error(t, err)

	err = repo.AccrueSale(ctx, uuid.New(), 2026, enums.Season("monsoon"), decimal.NewFromInt(1))
	require.Error(t, err)
}
