package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
)

// Repository manages persistence for buyer gateway customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBuyerCustomer(ctx context.Context, customer *models.BuyerCustomer) error
	GetBuyerCustomerByUserID(ctx context.Context, userID uuid.UUID) (*models.BuyerCustomer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBuyerCustomer(ctx context.Context, customer *models.BuyerCustomer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) GetBuyerCustomerByUserID(ctx context.Context, userID uuid.UUID) (*models.BuyerCustomer, error) {
	var customer models.BuyerCustomer
	err := r.db.WithContext(ctx).First(&customer, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}
