package lock

import "fmt"

// VariantKey scopes the reservation mutex per variant per order attempt, so
// a retried checkout never collides with a stale lock from an abandoned one.
func VariantKey(variantID, orderID int64) string {
	return fmt.Sprintf("ordercore:lock:variant:%d:%d", variantID, orderID)
}

// SweepLeaseKey names the leader lease for one sweep across instances.
func SweepLeaseKey(name string) string {
	return fmt.Sprintf("ordercore:sweep:lease:%s", name)
}
