package dto

import "time"

// GatewayResponse is the fixed acknowledgement body both gateway channels
// receive. The gateway matches on RspCode, not on the HTTP status.
type GatewayResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// PaymentResponse mirrors an order's payment record.
type PaymentResponse struct {
	OrderID       int64      `json:"orderId"`
	Amount        float64    `json:"amount"`
	Status        string     `json:"status"`
	TransactionID string     `json:"transactionId,omitempty"`
	BankCode      string     `json:"bankCode,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}
