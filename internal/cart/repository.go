package cart

import (
	"context"
	"database/sql"
	"errors"

	"mediserve-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	AddItem(ctx context.Context, params AddItemParams) (orderID uint, err error)
	RemoveItem(ctx context.Context, params RemoveItemParams) (emptied bool, err error)
	GetCart(ctx context.Context, userID uint) (*Cart, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// AddItem runs the whole add-to-cart mutation in one transaction:
// price lookup, get-or-create of the Pending order, line-item upsert and
// the total increment. The total moves by database-side arithmetic on the
// snapshot price, so concurrent adds to the same order never lose updates.
func (r *repository) AddItem(ctx context.Context, params AddItemParams) (uint, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "AddItem"),
		zap.Uint("user_id", params.UserID),
		zap.Uint("medicine_id", params.MedicineID),
		zap.Int("quantity", params.Quantity),
	)

	log.Debug("start add item")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return 0, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// Current catalog price; becomes the snapshot only for a new line item.
	var price decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT price
		FROM medicines
		WHERE id = $1
	`, params.MedicineID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMedicineNotFound
	}
	if err != nil {
		log.Error("failed to read medicine price", zap.Error(err))
		return 0, err
	}

	// Get-or-create the user's Pending order. The partial unique index on
	// (user_id) WHERE status = 'Pending' makes this race-free.
	var orderID uint
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, status, total_price)
		VALUES ($1, 'Pending', 0)
		ON CONFLICT (user_id) WHERE status = 'Pending'
		DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, params.UserID).Scan(&orderID)
	if err != nil {
		log.Error("failed to upsert pending order", zap.Error(err))
		return 0, err
	}

	// Upsert the line item. An existing row keeps its unit_price snapshot
	// and gains quantity; the note is overwritten either way.
	var snapshot decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		INSERT INTO order_items (order_id, medicine_id, quantity, unit_price, special_request)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id, medicine_id)
		DO UPDATE SET
			quantity = order_items.quantity + EXCLUDED.quantity,
			special_request = EXCLUDED.special_request
		RETURNING unit_price
	`, orderID, params.MedicineID, params.Quantity, price, params.Note).Scan(&snapshot)
	if err != nil {
		log.Error("failed to upsert order item", zap.Error(err))
		return 0, err
	}

	// Only the newly added portion moves the total, priced at the snapshot.
	delta := snapshot.Mul(decimal.NewFromInt(int64(params.Quantity)))
	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET total_price = total_price + $1,
		    updated_at = NOW()
		WHERE id = $2
	`, delta, orderID)
	if err != nil {
		log.Error("failed to increment order total", zap.Error(err))
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit add item", zap.Error(err))
		return 0, err
	}
	committed = true

	log.Info("item added to cart",
		zap.Uint("order_id", orderID),
		zap.String("delta", delta.String()),
	)

	return orderID, nil
}

// RemoveItem deletes a line item and subtracts its subtotal from the order
// total as one atomic unit. When the last item goes, the order goes with it.
func (r *repository) RemoveItem(ctx context.Context, params RemoveItemParams) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "RemoveItem"),
		zap.Uint("user_id", params.UserID),
		zap.Uint("order_item_id", params.OrderItemID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return false, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	var (
		orderID   uint
		quantity  int
		unitPrice decimal.Decimal
	)
	err = tx.QueryRowContext(ctx, `
		SELECT oi.order_id, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.id = $1 AND o.user_id = $2 AND o.status = 'Pending'
		FOR UPDATE
	`, params.OrderItemID, params.UserID).Scan(&orderID, &quantity, &unitPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrCartItemNotFound
	}
	if err != nil {
		log.Error("failed to lock order item", zap.Error(err))
		return false, err
	}

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM order_items WHERE id = $1
	`, params.OrderItemID); err != nil {
		log.Error("failed to delete order item", zap.Error(err))
		return false, err
	}

	delta := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if _, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET total_price = total_price - $1,
		    updated_at = NOW()
		WHERE id = $2
	`, delta, orderID); err != nil {
		log.Error("failed to decrement order total", zap.Error(err))
		return false, err
	}

	// Empty carts do not linger as zero-total Pending orders.
	res, err := tx.ExecContext(ctx, `
		DELETE FROM orders
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM order_items WHERE order_id = $1)
	`, orderID)
	if err != nil {
		log.Error("failed to delete emptied order", zap.Error(err))
		return false, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit remove item", zap.Error(err))
		return false, err
	}
	committed = true

	log.Info("item removed from cart",
		zap.Uint("order_id", orderID),
		zap.Bool("cart_emptied", deleted > 0),
	)

	return deleted > 0, nil
}

func (r *repository) GetCart(ctx context.Context, userID uint) (*Cart, error) {
	var c Cart
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, total_price, created_at
		FROM orders
		WHERE user_id = $1 AND status = 'Pending'
	`, userID).Scan(&c.OrderID, &c.UserID, &c.Total, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			oi.id,
			oi.medicine_id,
			m.name,
			m.dosage,
			oi.quantity,
			oi.unit_price,
			oi.special_request
		FROM order_items oi
		JOIN medicines m ON m.id = oi.medicine_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, c.OrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item LineItem
		if err := rows.Scan(
			&item.ID,
			&item.MedicineID,
			&item.MedicineName,
			&item.Dosage,
			&item.Quantity,
			&item.UnitPrice,
			&item.Note,
		); err != nil {
			return nil, err
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		c.Items = append(c.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}
