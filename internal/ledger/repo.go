package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

// Repository manages persistence for seasonal vendor ledgers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AccrueSale(ctx context.Context, farmerID uuid.UUID, year int, season enums.Season, amount decimal.Decimal) error
	AccrueRefund(ctx context.Context, farmerID uuid.UUID, year int, season enums.Season, amount decimal.Decimal) error
	Get(ctx context.Context, farmerID uuid.UUID, year int, season enums.Season) (*models.SeasonalLedger, error)
	ListForSeason(ctx context.Context, year int, season enums.Season) ([]models.SeasonalLedger, error)
	Update(ctx context.Context, row *models.SeasonalLedger) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AccrueSale adds a settled sale amount to the (farmer, season) row, creating
// it on first touch. Net sales track gross minus refunds in the same update.
func (r *repository) AccrueSale(ctx context.Context, farmerID uuid.UUID, year int, season enums.Season, amount decimal.Decimal) error {
	return r.accrue(ctx, farmerID, year, season, amount, decimal.Zero)
}

// AccrueRefund subtracts a refunded amount from net sales while keeping the
// refund total for reporting.
func (r *repository) AccrueRefund(ctx context.Context, farmerID uuid.UUID, year int, season enums.Season, amount decimal.Decimal) error {
	return r.accrue(ctx, farmerID, year, season, decimal.Zero, amount)
}

func (r *repository) accrue(ctx context.Context, farmerID uuid.UUID, year int, season enums.Season, sale, refund decimal.Decimal) error {
	if farmerID == uuid.Nil {
		return errors.New("farmer id is required")
	}
	if !season.IsValid() {
		return errors.New("invalid season")
	}

	row := &models.SeasonalLedger{
		ID:             uuid.New(),
		FarmerID:       farmerID,
		SeasonYear:     year,
		SeasonName:     season,
		GrossSales:     sale,
		Refunds:        refund,
		NetSales:       sale.Sub(refund),
		DiscountAmount: decimal.Zero,
		HostingFeeDue:  decimal.Zero,
		BillingStatus:  enums.LedgerBillingStatusPending,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "farmer_id"},
			{Name: "season_year"},
			{Name: "season_name"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"gross_sales": gorm.Expr("seasonal_ledgers.gross_sales + ?", sale),
			"refunds":     gorm.Expr("seasonal_ledgers.refunds + ?", refund),
			"net_sales":   gorm.Expr("seasonal_ledgers.net_sales + ?", sale.Sub(refund)),
		}),
	}).Create(row).Error
}

func (r *repository) Get(ctx context.Context, farmerID uuid.UUID, year int, season enums.Season) (*models.SeasonalLedger, error) {
	var row models.SeasonalLedger
	err := r.db.WithContext(ctx).
		First(&row, "farmer_id = ? AND season_year = ? AND season_name = ?", farmerID, year, season).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListForSeason(ctx context.Context, year int, season enums.Season) ([]models.SeasonalLedger, error) {
	var rows []models.SeasonalLedger
	err := r.db.WithContext(ctx).
		Where("season_year = ? AND season_name = ?", year, season).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, row *models.SeasonalLedger) error {
	return r.db.WithContext(ctx).Save(row).Error
}
