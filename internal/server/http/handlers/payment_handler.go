package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velostore/ordercore/internal/server/http/dto"
)

// PaymentHandler serves the gateway channels and COD collection.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Return handles GET /api/payments/return, the buyer's browser redirect.
func (h *PaymentHandler) Return(c *gin.Context) {
	result := h.facade.PaymentReturn(c.Request.Context(), c.Request.URL.Query())
	c.JSON(http.StatusOK, dto.GatewayResponse{
		RspCode: string(result.Code),
		Message: result.Code.Message(),
	})
}

// IPN handles GET /api/payments/ipn, the gateway's server-to-server
// notification. The body is always 200 with the code the gateway keys its
// retry behavior on.
func (h *PaymentHandler) IPN(c *gin.Context) {
	result := h.facade.PaymentIPN(c.Request.Context(), c.Request.URL.Query())
	c.JSON(http.StatusOK, dto.GatewayResponse{
		RspCode: string(result.Code),
		Message: result.Code.Message(),
	})
}

// CollectCOD handles POST /api/orders/:id/cod.
func (h *PaymentHandler) CollectCOD(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	payment, err := h.facade.CollectCOD(c.Request.Context(), id, CurrentRole(c))
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, dto.PaymentResponse{
		OrderID:       payment.OrderID,
		Amount:        payment.Amount,
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		BankCode:      payment.BankCode,
		PaidAt:        payment.PaidAt,
	})
}

// Payment handles GET /api/orders/:id/payment.
func (h *PaymentHandler) Payment(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}

	payment, err := h.facade.Payment(c.Request.Context(), id)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	c.JSON(http.StatusOK, dto.PaymentResponse{
		OrderID:       payment.OrderID,
		Amount:        payment.Amount,
		Status:        string(payment.Status),
		TransactionID: payment.TransactionID,
		BankCode:      payment.BankCode,
		PaidAt:        payment.PaidAt,
	})
}
