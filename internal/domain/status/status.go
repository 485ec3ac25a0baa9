package status

// Status is the closed enumeration of order fulfillment states. No code
// path writes a status string that is not declared here.
type Status string

const (
	PendingPayment      Status = "PENDING_PAYMENT"
	PendingConfirmation Status = "PENDING_CONFIRMATION"
	Preparing           Status = "PREPARING"
	ReadyToShip         Status = "READY_TO_SHIP"
	InTransit           Status = "IN_TRANSIT"
	OutForDelivery      Status = "OUT_FOR_DELIVERY"
	Delivered           Status = "DELIVERED"
	DeliveryFailed      Status = "DELIVERY_FAILED"
	ReturnedToWarehouse Status = "RETURNED_TO_WAREHOUSE"
	RefundRequested     Status = "REFUND_REQUESTED"
	Refunding           Status = "REFUNDING"
	Refunded            Status = "REFUNDED"
	RefundConfirmed     Status = "REFUND_CONFIRMED"
	Completed           Status = "COMPLETED"
	Cancelled           Status = "CANCELLED"
	ProcessingFailed    Status = "PROCESSING_FAILED"
)

// Role identifies who is requesting a transition. RoleSystem bypasses the
// permission table and is reserved for sweepers and payment reconciliation,
// never for direct user input.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleSystem   Role = "SYSTEM"
)

// Valid reports whether s is a declared order status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Valid reports whether r is a declared actor role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleSystem
}
