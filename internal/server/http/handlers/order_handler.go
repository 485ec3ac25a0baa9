package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/velostore/ordercore/internal/domain/model"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/server/http/dto"
	"github.com/velostore/ordercore/internal/usecase"
)

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	items := make([]usecase.OrderItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.OrderItemRequest{VariantID: it.VariantID, Quantity: it.Quantity})
	}

	order, err := h.facade.CreateOrder(c.Request.Context(), usecase.CreateOrderInput{
		UserID:        req.UserID,
		AddressID:     req.AddressID,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		Note:          req.Note,
		ShippingFee:   req.ShippingFee,
		UsePoints:     req.UsePoints,
		Items:         items,
	})
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.facade.Order(c.Request.Context(), id)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// List handles GET /api/orders?userId=N.
func (h *OrderHandler) List(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	orders, err := h.facade.Orders(c.Request.Context(), userID)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	if len(orders) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	response := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		response = append(response, toOrderResponse(&orders[i]))
	}

	c.JSON(http.StatusOK, response)
}

// History handles GET /api/orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	history, err := h.facade.OrderHistory(c.Request.Context(), id)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	response := make([]dto.StatusChangeResponse, 0, len(history))
	for _, change := range history {
		response = append(response, dto.StatusChangeResponse{
			FromStatus: string(change.FromStatus),
			ToStatus:   string(change.ToStatus),
			Actor:      string(change.Actor),
			Note:       change.Note,
			CreatedAt:  change.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}

// ChangeStatus handles POST /api/orders/:id/status. The caller's role comes
// from the actor middleware, never from the body.
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req dto.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	target := status.Status(req.TargetStatus)
	if !target.Valid() {
		c.Status(http.StatusBadRequest)
		return
	}

	order, err := h.facade.ChangeStatus(c.Request.Context(), id, target, CurrentRole(c), req.Note)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, dto.OrderItemResponse{
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			VariantName: it.VariantName,
			SKU:         it.SKU,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}

	return dto.OrderResponse{
		ID:             order.ID,
		Number:         order.Number,
		UserID:         order.UserID,
		Status:         string(order.Status),
		PaymentState:   string(order.PaymentState),
		PaymentMethod:  string(order.PaymentMethod),
		Subtotal:       order.Subtotal,
		ShippingFee:    order.ShippingFee,
		DiscountAmount: order.DiscountAmount,
		PointsSpent:    order.PointsSpent,
		Total:          order.Total,
		Note:           order.Note,
		LockedUntil:    order.LockedUntil,
		CreatedAt:      order.CreatedAt,
		Items:          items,
	}
}
