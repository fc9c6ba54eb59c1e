package api

import (
	"mediserve-be/internal/cart"

	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	MedicineID uint   `json:"medicine_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
	Note       string `json:"note"`
}

type restockRequest struct {
	Amount int `json:"amount" binding:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// cartJSON renders a cart view, or an explicit empty-cart result when the
// user has no Pending order.
func cartJSON(c *cart.Cart) gin.H {
	if c == nil {
		return gin.H{"empty": true, "items": []any{}, "total": "0"}
	}
	return gin.H{
		"empty":      false,
		"order_id":   c.OrderID,
		"total":      c.Total,
		"created_at": c.CreatedAt,
		"items":      c.Items,
	}
}
