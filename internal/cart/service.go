package cart

import (
	"context"

	"mediserve-be/internal/logger"
	"mediserve-be/internal/medicine"

	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	AddItem(ctx context.Context, params AddItemParams) (*Cart, error)
	RemoveItem(ctx context.Context, params RemoveItemParams) (*Cart, error)
	ViewCart(ctx context.Context, userID uint) (*Cart, error)
}

// Catalog is the price and stock read surface the cart consumes from the
// medicine store. medicine.Repository satisfies it.
type Catalog interface {
	GetPriceAndStock(ctx context.Context, id uint) (*medicine.PriceAndStock, error)
}

type service struct {
	repo    Repository
	catalog Catalog
}

// NewService creates a new cart service.
func NewService(repo Repository, catalog Catalog) Service {
	return &service{repo: repo, catalog: catalog}
}

// AddItem adds a medicine to the user's cart and returns the refreshed
// cart view with the committed total. The catalog check rejects unknown
// medicines before a transaction is opened; the authoritative price
// snapshot is still read inside the repository transaction.
func (s *service) AddItem(ctx context.Context, params AddItemParams) (*Cart, error) {
	if params.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	ps, err := s.catalog.GetPriceAndStock(ctx, params.MedicineID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to read catalog",
			zap.Uint("medicine_id", params.MedicineID),
			zap.Error(err),
		)
		return nil, ErrFailedAddItem
	}
	if ps == nil {
		return nil, ErrMedicineNotFound
	}

	if _, err := s.repo.AddItem(ctx, params); err != nil {
		return nil, err
	}

	return s.ViewCart(ctx, params.UserID)
}

// RemoveItem removes a line item. A nil cart with nil error means the
// removal emptied the cart and the order is gone.
func (s *service) RemoveItem(ctx context.Context, params RemoveItemParams) (*Cart, error) {
	emptied, err := s.repo.RemoveItem(ctx, params)
	if err != nil {
		return nil, err
	}

	if emptied {
		logger.FromCtx(ctx).Info("cart emptied",
			zap.Uint("user_id", params.UserID),
		)
		return nil, nil
	}

	return s.ViewCart(ctx, params.UserID)
}

// ViewCart returns the user's Pending order, or nil when there is none.
func (s *service) ViewCart(ctx context.Context, userID uint) (*Cart, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load cart",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return nil, ErrFailedGetCart
	}

	return c, nil
}
