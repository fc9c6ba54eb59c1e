package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediserve-be/internal/event"
	"mediserve-be/internal/logger"
	"mediserve-be/internal/metrics"

	"go.uber.org/zap"
)

const routingKeyOrderPlaced = "order.placed"

var checkoutStats = &metrics.CheckoutStats{}

// CheckoutStatsSnapshot exposes the checkout counters to the management
// surface.
func CheckoutStatsSnapshot() map[string]uint64 {
	return checkoutStats.Snapshot()
}

type Service interface {
	Checkout(ctx context.Context, userID uint) (*CheckoutResult, error)
	ListHistory(ctx context.Context, userID uint, limit int) ([]Order, error)
	ListByStatus(ctx context.Context, status OrderStatus) ([]Order, error)
	GetOrderDetail(ctx context.Context, userID, orderID uint, isAdmin bool) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status OrderStatus) error
}

type service struct {
	repo      Repository
	publisher event.Publisher
}

// NewService creates a new order service. publisher may be nil when no
// broker is configured; checkout then skips event emission.
func NewService(repo Repository, publisher event.Publisher) Service {
	return &service{repo: repo, publisher: publisher}
}

// Checkout finalizes the user's Pending order. Business rejections
// (empty cart, insufficient stock, lock contention) come back as their
// typed errors; anything unexpected is wrapped in ErrCheckoutFailed with
// the repository guaranteeing full rollback.
func (s *service) Checkout(ctx context.Context, userID uint) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Checkout"),
		zap.Uint("user_id", userID),
	)

	timer := metrics.StartTimer()

	result, err := s.repo.Checkout(ctx, userID)
	if err != nil {
		var stockErr *InsufficientStockError
		switch {
		case errors.Is(err, ErrCheckoutConflict):
			checkoutStats.Conflicts.Inc()
			return nil, err
		case errors.Is(err, ErrEmptyCart),
			errors.As(err, &stockErr):
			checkoutStats.Rejected.Inc()
			return nil, err
		default:
			log.Error("checkout transaction failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
		}
	}

	checkoutStats.Succeeded.Inc()
	log.Info("checkout finished",
		zap.Uint("order_id", result.OrderID),
		zap.Duration("duration", timer.Duration()),
	)

	if s.publisher != nil {
		go s.publishOrderPlaced(userID, result)
	}

	return result, nil
}

func (s *service) publishOrderPlaced(userID uint, result *CheckoutResult) {
	evt := OrderPlacedEvent{
		OrderID:  result.OrderID,
		UserID:   userID,
		Total:    result.Total.String(),
		PlacedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.publisher.Publish(ctx, routingKeyOrderPlaced, evt); err != nil {
		logger.L().Warn("failed to publish order placed event",
			zap.Uint("order_id", result.OrderID),
			zap.Error(err),
		)
	}
}

func (s *service) ListHistory(ctx context.Context, userID uint, limit int) ([]Order, error) {
	return s.repo.ListUserOrders(ctx, userID, limit)
}

func (s *service) ListByStatus(ctx context.Context, status OrderStatus) ([]Order, error) {
	switch status {
	case StatusPending, StatusProcessing, StatusShipped, StatusCompleted, StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	return s.repo.ListByStatus(ctx, status)
}

// GetOrderDetail returns an order with its items. Users only see their
// own orders; fulfillment staff see everything.
func (s *service) GetOrderDetail(ctx context.Context, userID, orderID uint, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && o.UserID != userID {
		return nil, ErrOrderNotFound
	}

	return o, nil
}

// UpdateOrderStatus is the fulfillment collaborators' entry point:
// Processing orders move to Shipped, Completed or Cancelled. Carts
// (Pending orders) are owned by the cart flow and are off limits.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uint, status OrderStatus) error {
	validStatuses := map[OrderStatus]bool{
		StatusShipped:   true,
		StatusCompleted: true,
		StatusCancelled: true,
	}

	if !validStatuses[status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	return s.repo.UpdateOrderStatus(ctx, orderID, status)
}
