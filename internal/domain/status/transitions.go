package status

import (
	"fmt"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
)

// transitions is the single source of truth for legal status edges.
var transitions = map[Status]map[Status]bool{
	PendingPayment:      {PendingConfirmation: true, ProcessingFailed: true, Cancelled: true},
	PendingConfirmation: {Preparing: true, Cancelled: true},
	Preparing:           {ReadyToShip: true, Cancelled: true},
	ReadyToShip:         {InTransit: true},
	InTransit:           {OutForDelivery: true, DeliveryFailed: true},
	OutForDelivery:      {Delivered: true, DeliveryFailed: true},
	DeliveryFailed:      {InTransit: true, ReturnedToWarehouse: true},
	ReturnedToWarehouse: {Preparing: true, Cancelled: true},
	Delivered:           {RefundRequested: true, Completed: true},
	RefundRequested:     {Refunding: true, Delivered: true},
	Refunding:           {Refunded: true},
	Refunded:            {RefundConfirmed: true},
	RefundConfirmed:     {},
	Completed:           {},
	Cancelled:           {},
	ProcessingFailed:    {},
}

// permissions lists the roles allowed to set each target status. RoleSystem
// is intentionally absent: it bypasses this table entirely.
var permissions = map[Status]map[Role]bool{
	PendingConfirmation: {},
	Preparing:           {RoleStaff: true},
	ReadyToShip:         {RoleStaff: true},
	InTransit:           {RoleStaff: true},
	OutForDelivery:      {RoleStaff: true},
	Delivered:           {RoleStaff: true},
	DeliveryFailed:      {RoleStaff: true},
	ReturnedToWarehouse: {RoleStaff: true},
	RefundRequested:     {RoleCustomer: true},
	Refunding:           {RoleStaff: true},
	Refunded:            {RoleStaff: true},
	RefundConfirmed:     {RoleCustomer: true},
	Completed:           {RoleCustomer: true},
	Cancelled:           {RoleCustomer: true, RoleStaff: true},
	ProcessingFailed:    {},
}

// TransitionError reports a rejected transition together with the context an
// operator needs: current status, requested status, and requesting role.
type TransitionError struct {
	From Status
	To   Status
	Role Role
	err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s as %s: %v", e.From, e.To, e.Role, e.err)
}

func (e *TransitionError) Unwrap() error { return e.err }

// CanTransition reports whether the edge from -> to exists in the table.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// ValidateTransition checks the edge and the actor's permission for the
// target status. It never mutates anything; callers apply the transition
// through the orchestrator only after this passes.
func ValidateTransition(from, to Status, role Role) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to, Role: role, err: domainErrors.ErrInvalidTransition}
	}
	if role == RoleSystem {
		return nil
	}
	if !permissions[to][role] {
		return &TransitionError{From: from, To: to, Role: role, err: domainErrors.ErrForbidden}
	}
	return nil
}
