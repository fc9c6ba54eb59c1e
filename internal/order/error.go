package order

import (
	"errors"
	"fmt"
)

var (
	// -- Resource State --
	ErrEmptyCart     = errors.New("no pending order to check out")
	ErrOrderNotFound = errors.New("order not found")

	// -- Business Rules --
	ErrInvalidStatus = errors.New("invalid order status")

	// -- Contention & Failures --
	ErrCheckoutConflict = errors.New("checkout already in progress, retry")
	ErrCheckoutFailed   = errors.New("checkout failed")

	// -- Constants (External Systems) --
	PgLockNotAvailable = "55P03"
	PgDeadlockDetected = "40P01"
)

// InsufficientStockError names the first line item whose requested quantity
// exceeds the currently available stock. The cart is left untouched.
type InsufficientStockError struct {
	MedicineID uint
	Name       string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf(
		"insufficient stock for %s: requested %d, available %d",
		e.Name, e.Requested, e.Available,
	)
}
