package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/farmcrate/farmcrate-backend/pkg/db/models"
	"github.com/farmcrate/farmcrate-backend/pkg/enums"
	pkgerrors "github.com/farmcrate/farmcrate-backend/pkg/errors"
)

const defaultListLimit = 50

// Viewer identifies who is asking for orders and which side they act on.
type Viewer struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	FarmerID *uuid.UUID
}

// Service exposes read access to settled orders.
type Service interface {
	List(ctx context.Context, viewer Viewer, limit int) ([]models.MarketplaceOrder, error)
	Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*models.MarketplaceOrder, error)
}

type service struct {
	repo Repository
}

// NewService wires an order read service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &service{repo: repo}, nil
}

// List returns the viewer's orders, newest first. Buyers see their purchases,
// farmers see their sales.
func (s *service) List(ctx context.Context, viewer Viewer, limit int) ([]models.MarketplaceOrder, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	if viewer.Role == enums.UserRoleFarmer {
		if viewer.FarmerID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "farmer identity missing")
		}
		result, err := s.repo.ListByFarmer(ctx, *viewer.FarmerID, limit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing farmer orders")
		}
		return result, nil
	}

	result, err := s.repo.ListByBuyer(ctx, viewer.UserID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing buyer orders")
	}
	return result, nil
}

// Get returns a single order if the viewer is a party to it.
func (s *service) Get(ctx context.Context, viewer Viewer, orderID uuid.UUID) (*models.MarketplaceOrder, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	if order.BuyerUserID == viewer.UserID {
		return order, nil
	}
	if viewer.Role == enums.UserRoleFarmer && viewer.FarmerID != nil && order.FarmerID == *viewer.FarmerID {
		return order, nil
	}
	if viewer.Role == enums.UserRoleAdmin {
		return order, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}
