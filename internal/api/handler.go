package api

import (
	"errors"
	"net/http"
	"strconv"

	"mediserve-be/internal/cart"
	"mediserve-be/internal/logger"
	"mediserve-be/internal/medicine"
	"mediserve-be/internal/order"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	medicineSvc medicine.Service
	cartSvc     cart.Service
	orderSvc    order.Service
}

func NewHandler(medicineSvc medicine.Service, cartSvc cart.Service, orderSvc order.Service) *Handler {
	return &Handler{
		medicineSvc: medicineSvc,
		cartSvc:     cartSvc,
		orderSvc:    orderSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/medicines", h.ListMedicines)
	r.GET("/medicines/:id", h.GetMedicine)

	r.POST("/cart/items", h.AddCartItem)
	r.DELETE("/cart/items/:id", h.RemoveCartItem)
	r.GET("/cart", h.GetCart)

	r.POST("/checkout", h.Checkout)

	r.GET("/orders", h.ListHistory)
	r.GET("/orders/:id", h.GetOrderDetail)

	// Fulfillment and stock-management surface. Authn/authz sits in front
	// of this service; the gateway only routes staff here.
	mgmt := r.Group("/management")
	mgmt.PUT("/medicines/:id/stock", h.RestockMedicine)
	mgmt.GET("/orders", h.ListOrdersByStatus)
	mgmt.PUT("/orders/:id/status", h.UpdateOrderStatus)
	mgmt.GET("/stats", h.CheckoutStats)
}

// userID reads the authenticated user from the X-User-ID header placed by
// the auth collaborator in front of this service.
func userID(c *gin.Context) (uint, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return 0, false
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user identity"})
		return 0, false
	}

	// Downstream logs carry the caller the same way they carry request ids.
	ctx := logger.WithUserID(c.Request.Context(), uint(id))
	c.Request = c.Request.WithContext(ctx)

	return uint(id), true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) ListMedicines(c *gin.Context) {
	medicines, err := h.medicineSvc.ListMedicines(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, medicines)
}

func (h *Handler) GetMedicine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	m, err := h.medicineSvc.GetMedicine(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) RestockMedicine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.medicineSvc.RestockMedicine(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := cart.AddItemParams{
		UserID:     uid,
		MedicineID: req.MedicineID,
		Quantity:   req.Quantity,
	}
	if req.Note != "" {
		params.Note = &req.Note
	}

	view, err := h.cartSvc.AddItem(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartJSON(view))
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.cartSvc.RemoveItem(c.Request.Context(), cart.RemoveItemParams{
		UserID:      uid,
		OrderItemID: itemID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartJSON(view))
}

func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	view, err := h.cartSvc.ViewCart(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartJSON(view))
}

func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	result, err := h.orderSvc.Checkout(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListHistory(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	orders, err := h.orderSvc.ListHistory(c.Request.Context(), uid, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrderDetail(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	isAdmin := c.GetHeader("X-User-Role") == "admin"

	o, err := h.orderSvc.GetOrderDetail(c.Request.Context(), uid, orderID, isAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrdersByStatus(c *gin.Context) {
	status := order.OrderStatus(c.DefaultQuery("status", string(order.StatusProcessing)))

	orders, err := h.orderSvc.ListByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orderSvc.UpdateOrderStatus(c.Request.Context(), orderID, order.OrderStatus(req.Status)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": req.Status})
}

func (h *Handler) CheckoutStats(c *gin.Context) {
	c.JSON(http.StatusOK, order.CheckoutStatsSnapshot())
}

// respondError maps typed domain errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	var stockErr *order.InsufficientStockError

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, medicine.ErrInvalidStockAmount),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, cart.ErrMedicineNotFound),
		errors.Is(err, medicine.ErrMedicineNotFound),
		errors.Is(err, cart.ErrCartItemNotFound),
		errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "insufficient stock",
			"medicine_id": stockErr.MedicineID,
			"medicine":    stockErr.Name,
			"requested":   stockErr.Requested,
			"available":   stockErr.Available,
		})

	case errors.Is(err, order.ErrCheckoutConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"retryable": true,
		})

	default:
		logger.FromCtx(c.Request.Context()).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
