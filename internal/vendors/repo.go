package vendors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
)

// Repository manages persistence for farmers and their gateway records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateFarmer(ctx context.Context, farmer *models.Farmer) error
	GetFarmerByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error)
	GetFarmerByUserID(ctx context.Context, userID uuid.UUID) (*models.Farmer, error)
	ListFarmers(ctx context.Context) ([]models.Farmer, error)

	CreateStripeAccount(ctx context.Context, account *models.VendorStripeAccount) error
	UpdateStripeAccount(ctx context.Context, account *models.VendorStripeAccount) error
	GetStripeAccountByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.VendorStripeAccount, error)
	GetStripeAccountByGatewayID(ctx context.Context, stripeAccountID string) (*models.VendorStripeAccount, error)

	CreatePlatformCustomer(ctx context.Context, customer *models.VendorPlatformCustomer) error
	GetPlatformCustomerByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.VendorPlatformCustomer, error)
	GetPlatformCustomerByGatewayID(ctx context.Context, stripeCustomerID string) (*models.VendorPlatformCustomer, error)

	CreateSubscription(ctx context.Context, subscription *models.VendorSubscription) error
	UpdateSubscription(ctx context.Context, subscription *models.VendorSubscription) error
	GetSubscriptionByGatewayID(ctx context.Context, stripeSubscriptionID string) (*models.VendorSubscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vendor repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateFarmer(ctx context.Context, farmer *models.Farmer) error {
	return r.db.WithContext(ctx).Create(farmer).Error
}

func (r *repository) GetFarmerByID(ctx context.Context, id uuid.UUID) (*models.Farmer, error) {
	var farmer models.Farmer
	err := r.db.WithContext(ctx).
		Preload("StripeAccount").
		Preload("PlatformCustomer").
		First(&farmer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &farmer, nil
}

func (r *repository) GetFarmerByUserID(ctx context.Context, userID uuid.UUID) (*models.Farmer, error) {
	var farmer models.Farmer
	err := r.db.WithContext(ctx).
		Preload("StripeAccount").
		Preload("PlatformCustomer").
		First(&farmer, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &farmer, nil
}

func (r *repository) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	var farmers []models.Farmer
	err := r.db.WithContext(ctx).
		Preload("StripeAccount").
		Preload("PlatformCustomer").
		Order("created_at ASC").
		Find(&farmers).Error
	if err != nil {
		return nil, err
	}
	return farmers, nil
}

func (r *repository) CreateStripeAccount(ctx context.Context, account *models.VendorStripeAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) UpdateStripeAccount(ctx context.Context, account *models.VendorStripeAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) GetStripeAccountByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.VendorStripeAccount, error) {
	var account models.VendorStripeAccount
	err := r.db.WithContext(ctx).First(&account, "farmer_id = ?", farmerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetStripeAccountByGatewayID(ctx context.Context, stripeAccountID string) (*models.VendorStripeAccount, error) {
	var account models.VendorStripeAccount
	err := r.db.WithContext(ctx).First(&account, "stripe_account_id = ?", stripeAccountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreatePlatformCustomer(ctx context.Context, customer *models.VendorPlatformCustomer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) GetPlatformCustomerByFarmerID(ctx context.Context, farmerID uuid.UUID) (*models.VendorPlatformCustomer, error) {
	var customer models.VendorPlatformCustomer
	err := r.db.WithContext(ctx).First(&customer, "farmer_id = ?", farmerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) GetPlatformCustomerByGatewayID(ctx context.Context, stripeCustomerID string) (*models.VendorPlatformCustomer, error) {
	var customer models.VendorPlatformCustomer
	err := r.db.WithContext(ctx).First(&customer, "stripe_customer_id = ?", stripeCustomerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) CreateSubscription(ctx context.Context, subscription *models.VendorSubscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, subscription *models.VendorSubscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *repository) GetSubscriptionByGatewayID(ctx context.Context, stripeSubscriptionID string) (*models.VendorSubscription, error) {
	var subscription models.VendorSubscription
	err := r.db.WithContext(ctx).First(&subscription, "stripe_subscription_id = ?", stripeSubscriptionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}
