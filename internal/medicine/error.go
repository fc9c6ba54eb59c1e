package medicine

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidStockAmount = errors.New("invalid stock amount")

	// -- Resource State --
	ErrMedicineNotFound = errors.New("medicine not found")

	// -- Database & Operation Failures --
	ErrFailedListMedicines = errors.New("failed to list medicines")
	ErrFailedRestock       = errors.New("failed to restock medicine")
)
