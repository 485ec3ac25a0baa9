package status

// IsTerminal reports whether no further transition leaves s.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// IsCancellable reports whether a customer may still abandon the order.
// Physical fulfillment has not started in any of these states.
func IsCancellable(s Status) bool {
	switch s {
	case PendingPayment, PendingConfirmation, Preparing, ReturnedToWarehouse:
		return true
	}
	return false
}

// ReleasesStock reports whether entering s must put reserved quantities back
// into the sellable pool. The goods never physically left the warehouse.
func ReleasesStock(s Status) bool {
	return s == Cancelled || s == ProcessingFailed
}

// ConfirmsStock reports whether entering s converts reservations into a
// permanent physical deduction.
func ConfirmsStock(s Status) bool {
	return s == PendingConfirmation
}

// ReturnsStock reports whether entering s means goods came back to the
// warehouse after having been physically deducted, so both counters grow.
func ReturnsStock(s Status) bool {
	return s == Refunded
}

// AwardsPoints reports whether entering s grants loyalty points.
func AwardsPoints(s Status) bool {
	return s == Completed
}
