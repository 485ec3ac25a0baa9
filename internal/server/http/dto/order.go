package dto

import "time"

// OrderItemRequest is one requested cart line. Prices are never accepted
// from the client; the order snapshots current catalog prices.
type OrderItemRequest struct {
	VariantID int64 `json:"variantId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// CreateOrderRequest is the body of POST /api/orders.
type CreateOrderRequest struct {
	UserID        int64              `json:"userId" binding:"required"`
	AddressID     int64              `json:"addressId"`
	PaymentMethod string             `json:"paymentMethod" binding:"required"`
	Note          string             `json:"note"`
	ShippingFee   float64            `json:"shippingFee"`
	UsePoints     int64              `json:"usePoints"`
	Items         []OrderItemRequest `json:"items" binding:"required"`
}

// ChangeStatusRequest is the body of POST /api/orders/:id/status.
type ChangeStatusRequest struct {
	TargetStatus string `json:"targetStatus" binding:"required"`
	Note         string `json:"note"`
}

// OrderItemResponse mirrors one immutable order line.
type OrderItemResponse struct {
	VariantID   int64   `json:"variantId"`
	ProductName string  `json:"productName"`
	VariantName string  `json:"variantName"`
	SKU         string  `json:"sku"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
}

// OrderResponse is the full order representation.
type OrderResponse struct {
	ID             int64               `json:"id"`
	Number         string              `json:"number"`
	UserID         int64               `json:"userId"`
	Status         string              `json:"status"`
	PaymentState   string              `json:"paymentState"`
	PaymentMethod  string              `json:"paymentMethod"`
	Subtotal       float64             `json:"subtotal"`
	ShippingFee    float64             `json:"shippingFee"`
	DiscountAmount float64             `json:"discountAmount"`
	PointsSpent    int64               `json:"pointsSpent"`
	Total          float64             `json:"total"`
	Note           string              `json:"note,omitempty"`
	LockedUntil    *time.Time          `json:"lockedUntil,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	Items          []OrderItemResponse `json:"items,omitempty"`
}

// StatusChangeResponse is one audit row of an order's history.
type StatusChangeResponse struct {
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
