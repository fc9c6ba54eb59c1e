package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusCompleted  OrderStatus = "Completed"
	StatusCancelled  OrderStatus = "Cancelled"
)

type Order struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"user_id"`
	Status    OrderStatus     `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Items     []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	ID           uint            `json:"id"`
	OrderID      uint            `json:"order_id"`
	MedicineID   uint            `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Note         *string         `json:"note,omitempty"`
}

// CheckoutResult is what the presentation layer gets back from a
// successful checkout.
type CheckoutResult struct {
	OrderID uint            `json:"order_id"`
	Status  OrderStatus     `json:"status"`
	Total   decimal.Decimal `json:"total"`
}

// OrderPlacedEvent feeds downstream fulfillment consumers.
type OrderPlacedEvent struct {
	OrderID  uint      `json:"order_id"`
	UserID   uint      `json:"user_id"`
	Total    string    `json:"total"`
	PlacedAt time.Time `json:"placed_at"`
}
