package model

import "time"

// ProductVariant carries the two inventory counters. Stock is the physical
// warehouse count; AvailableStock is the sellable count, i.e. stock minus
// outstanding reservations. AvailableStock <= Stock holds at all times.
type ProductVariant struct {
	ID             int64
	ProductName    string
	VariantName    string
	SKU            string
	Price          float64
	Stock          int
	AvailableStock int
	UpdatedAt      time.Time
}

// StockReservation marks inventory provisionally removed from the sellable
// pool while an order awaits its outcome. It exists only between order
// creation and resolution: confirmed into a physical deduction, or released.
type StockReservation struct {
	ID        int64
	VariantID int64
	OrderID   int64
	Quantity  int
	LockKey   string
	LockToken string
	ExpiresAt time.Time
	CreatedAt time.Time
}
