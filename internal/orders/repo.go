package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
)

// Repository manages persistence for settled marketplace orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.MarketplaceOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MarketplaceOrder, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.MarketplaceOrder, error)
	ListByBuyer(ctx context.Context, buyerUserID uuid.UUID, limit int) ([]models.MarketplaceOrder, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID, limit int) ([]models.MarketplaceOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.MarketplaceOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.MarketplaceOrder, error) {
	var order models.MarketplaceOrder
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.MarketplaceOrder, error) {
	var order models.MarketplaceOrder
	err := r.db.WithContext(ctx).First(&order, "stripe_payment_intent_id = ?", paymentIntentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerUserID uuid.UUID, limit int) ([]models.MarketplaceOrder, error) {
	var result []models.MarketplaceOrder
	q := r.db.WithContext(ctx).
		Where("buyer_user_id = ?", buyerUserID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) ListByFarmer(ctx context.Context, farmerID uuid.UUID, limit int) ([]models.MarketplaceOrder, error) {
	var result []models.MarketplaceOrder
	q := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.MarketplaceOrder{}).
		Where("id = ?", id).
		Update("status", status).Error
}
