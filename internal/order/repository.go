package order

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"mediserve-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Checkout(ctx context.Context, userID uint) (*CheckoutResult, error)
	ListUserOrders(ctx context.Context, userID uint, limit int) ([]Order, error)
	ListByStatus(ctx context.Context, status OrderStatus) ([]Order, error)
	GetOrderDetail(ctx context.Context, orderID uint) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status OrderStatus) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Checkout validates stock for every line item against the current catalog
// and commits the stock deduction plus the Pending -> Processing transition
// in one transaction. The Pending order row is locked with NOWAIT for the
// duration, so a concurrent checkout or cart mutation on the same order
// either waits behind us or surfaces as ErrCheckoutConflict here.
func (r *repository) Checkout(ctx context.Context, userID uint) (*CheckoutResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Checkout"),
		zap.Uint("user_id", userID),
	)

	log.Debug("start checkout transaction")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			} else {
				log.Debug("checkout transaction rolled back")
			}
		}
	}()

	var result CheckoutResult
	err = tx.QueryRowContext(ctx, `
		SELECT id, total_price
		FROM orders
		WHERE user_id = $1 AND status = 'Pending'
		FOR UPDATE NOWAIT
	`, userID).Scan(&result.OrderID, &result.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		if retryableLockError(err) {
			log.Warn("pending order already locked")
			return nil, ErrCheckoutConflict
		}
		log.Error("failed to lock pending order", zap.Error(err))
		return nil, err
	}

	items, err := r.orderItemsTx(ctx, tx, result.OrderID)
	if err != nil {
		log.Error("failed to load order items", zap.Error(err))
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Stock rows are read and locked in medicine id order, so two checkouts
	// whose carts share medicines cannot acquire them in opposite sequences
	// and deadlock each other.
	sort.Slice(items, func(i, j int) bool {
		return items[i].MedicineID < items[j].MedicineID
	})

	// Validation phase: every line item against current stock, not the
	// price snapshot. Nothing is mutated until all items pass.
	for _, item := range items {
		var stock int
		err = tx.QueryRowContext(ctx, `
			SELECT stock_quantity
			FROM medicines
			WHERE id = $1
		`, item.MedicineID).Scan(&stock)
		if err != nil {
			log.Error("failed to read stock",
				zap.Uint("medicine_id", item.MedicineID),
				zap.Error(err),
			)
			return nil, err
		}

		if item.Quantity > stock {
			log.Warn("insufficient stock",
				zap.Uint("medicine_id", item.MedicineID),
				zap.Int("requested", item.Quantity),
				zap.Int("available", stock),
			)
			return nil, &InsufficientStockError{
				MedicineID: item.MedicineID,
				Name:       item.MedicineName,
				Requested:  item.Quantity,
				Available:  stock,
			}
		}
	}

	// Commit phase: guarded single-statement decrements. A zero-row update
	// means another checkout won the race since our validation read, and
	// the whole transaction rolls back.
	for _, item := range items {
		res, err := tx.ExecContext(ctx, `
			UPDATE medicines
			SET stock_quantity = stock_quantity - $1
			WHERE id = $2 AND stock_quantity >= $1
		`, item.Quantity, item.MedicineID)
		if err != nil {
			if retryableLockError(err) {
				log.Warn("stock row contention",
					zap.Uint("medicine_id", item.MedicineID),
				)
				return nil, ErrCheckoutConflict
			}
			log.Error("failed to deduct stock",
				zap.Uint("medicine_id", item.MedicineID),
				zap.Error(err),
			)
			return nil, err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var stock int
			if err := tx.QueryRowContext(ctx, `
				SELECT stock_quantity FROM medicines WHERE id = $1
			`, item.MedicineID).Scan(&stock); err != nil {
				return nil, err
			}
			return nil, &InsufficientStockError{
				MedicineID: item.MedicineID,
				Name:       item.MedicineName,
				Requested:  item.Quantity,
				Available:  stock,
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET status = 'Processing',
		    updated_at = NOW()
		WHERE id = $1
	`, result.OrderID); err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit checkout", zap.Error(err))
		return nil, err
	}
	committed = true

	result.Status = StatusProcessing

	log.Info("checkout committed",
		zap.Uint("order_id", result.OrderID),
		zap.String("total", result.Total.String()),
		zap.Int("item_count", len(items)),
	)

	return &result, nil
}

// retryableLockError reports whether err is transient lock contention the
// caller may retry: lock_not_available from NOWAIT, or deadlock_detected
// when Postgres aborts us as the deadlock victim.
func retryableLockError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	code := string(pqErr.Code)
	return code == PgLockNotAvailable || code == PgDeadlockDetected
}

func (r *repository) orderItemsTx(ctx context.Context, tx *sql.Tx, orderID uint) ([]OrderItem, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT oi.id, oi.medicine_id, m.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN medicines m ON m.id = oi.medicine_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.MedicineID,
			&item.MedicineName,
			&item.Quantity,
			&item.UnitPrice,
		); err != nil {
			return nil, err
		}
		item.OrderID = orderID
		items = append(items, item)
	}

	return items, rows.Err()
}

// ListUserOrders returns the user's finalized orders, most recent first.
func (r *repository) ListUserOrders(ctx context.Context, userID uint, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, status, total_price, created_at, updated_at
		FROM orders
		WHERE user_id = $1 AND status <> 'Pending'
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

// ListByStatus returns all orders in the given status by creation time,
// oldest first, the order the fulfillment queue works in.
func (r *repository) ListByStatus(ctx context.Context, status OrderStatus) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, status, total_price, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

func scanOrders(rows *sql.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.Total,
			&o.CreatedAt,
			&o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *repository) GetOrderDetail(ctx context.Context, orderID uint) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_price, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.id, oi.medicine_id, m.name, oi.quantity, oi.unit_price, oi.special_request
		FROM order_items oi
		JOIN medicines m ON m.id = oi.medicine_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.MedicineID,
			&item.MedicineName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Note,
		); err != nil {
			return nil, err
		}
		item.OrderID = o.ID
		o.Items = append(o.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

// UpdateOrderStatus moves a finalized order along the fulfillment path.
// Pending orders are carts and are never touched here.
func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uint, status OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status <> 'Pending'
	`, status, orderID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	return nil
}
