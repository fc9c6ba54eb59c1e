package medicine

import (
	"context"
	"database/sql"
	"errors"

	"mediserve-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context) ([]Medicine, error)
	GetByID(ctx context.Context, id uint) (*Medicine, error)
	GetPriceAndStock(ctx context.Context, id uint) (*PriceAndStock, error)
	Restock(ctx context.Context, id uint, amount int) (*Medicine, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Medicine, error) {
	query := `
	SELECT
		id,
		name,
		generic_name,
		dosage,
		formulation,
		price,
		stock_quantity,
		description
	FROM medicines
	ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Medicine
	for rows.Next() {
		var m Medicine
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.GenericName,
			&m.Dosage,
			&m.Formulation,
			&m.Price,
			&m.StockQuantity,
			&m.Description,
		); err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Medicine, error) {
	query := `
	SELECT
		id,
		name,
		generic_name,
		dosage,
		formulation,
		price,
		stock_quantity,
		description
	FROM medicines
	WHERE id = $1
	`

	var m Medicine
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.Name,
		&m.GenericName,
		&m.Dosage,
		&m.Formulation,
		&m.Price,
		&m.StockQuantity,
		&m.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *repository) GetPriceAndStock(ctx context.Context, id uint) (*PriceAndStock, error) {
	var ps PriceAndStock
	err := r.db.QueryRowContext(ctx, `
		SELECT price, stock_quantity
		FROM medicines
		WHERE id = $1
	`, id).Scan(&ps.Price, &ps.Stock)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &ps, nil
}

// Restock adds amount to the medicine's stock as a single database-side
// increment. Stock-management is the only writer besides checkout.
func (r *repository) Restock(ctx context.Context, id uint, amount int) (*Medicine, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Restock"),
		zap.Uint("medicine_id", id),
		zap.Int("amount", amount),
	)

	query := `
	UPDATE medicines
	SET stock_quantity = stock_quantity + $1
	WHERE id = $2
	RETURNING
		id,
		name,
		generic_name,
		dosage,
		formulation,
		price,
		stock_quantity,
		description
	`

	var m Medicine
	err := r.db.QueryRowContext(ctx, query, amount, id).Scan(
		&m.ID,
		&m.Name,
		&m.GenericName,
		&m.Dosage,
		&m.Formulation,
		&m.Price,
		&m.StockQuantity,
		&m.Description,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMedicineNotFound
	}
	if err != nil {
		log.Error("failed to restock medicine", zap.Error(err))
		return nil, err
	}

	log.Info("medicine restocked",
		zap.Int("new_stock", m.StockQuantity),
	)

	return &m, nil
}
