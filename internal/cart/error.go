package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// -- Resource State --
	ErrMedicineNotFound = errors.New("medicine not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrCartEmpty        = errors.New("cart is empty")

	// -- Database & Operation Failures --
	ErrFailedAddItem    = errors.New("failed to add item to cart")
	ErrFailedRemoveItem = errors.New("failed to remove item from cart")
	ErrFailedGetCart    = errors.New("failed to get cart")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
