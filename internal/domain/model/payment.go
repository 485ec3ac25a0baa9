package model

import "time"

// PaymentStatus describes the lifecycle of a single payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending      PaymentStatus = "PENDING"
	PaymentStatusPaid         PaymentStatus = "PAID"
	PaymentStatusFailed       PaymentStatus = "FAILED"
	PaymentStatusCODCollected PaymentStatus = "COD_COLLECTED"
)

// Terminal reports whether the payment reached a state that must never be
// reapplied by a duplicate confirmation.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusCODCollected
}

// Payment is the 1:1 record of an order's payment, created lazily on the
// first confirmation attempt. Once PAID it is never silently reverted.
type Payment struct {
	ID            int64
	OrderID       int64
	Amount        float64
	Status        PaymentStatus
	TransactionID string
	BankCode      string
	RawCallback   string
	PaidAt        *time.Time
	FailedAt      *time.Time
	CreatedAt     time.Time
}
