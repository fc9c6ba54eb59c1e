package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the user's single Pending order together with its line items.
type Cart struct {
	OrderID   uint            `json:"order_id"`
	UserID    uint            `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []LineItem      `json:"items"`
}

// LineItem is one medicine entry in the cart. UnitPrice is the catalog
// price captured when the item was first added and never re-read.
type LineItem struct {
	ID           uint            `json:"id"`
	MedicineID   uint            `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	Dosage       string          `json:"dosage"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Note         *string         `json:"note,omitempty"`
}

type AddItemParams struct {
	UserID     uint
	MedicineID uint
	Quantity   int
	Note       *string
}

type RemoveItemParams struct {
	UserID      uint
	OrderItemID uint
}
