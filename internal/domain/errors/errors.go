package errors

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrAlreadyExists             = errors.New("already exists")
	ErrInvalidTransition         = errors.New("invalid status transition")
	ErrForbidden                 = errors.New("role not permitted for target status")
	ErrConflict                  = errors.New("resource locked by concurrent operation")
	ErrInsufficientStock         = errors.New("insufficient available stock")
	ErrInsufficientPhysicalStock = errors.New("physical stock below reserved quantity")
	ErrSignatureInvalid          = errors.New("callback signature invalid")
	ErrAmountMismatch            = errors.New("callback amount does not match order total")
	ErrAlreadyProcessed          = errors.New("payment already processed")
	ErrDiscountLimitReached      = errors.New("monthly discount limit reached")
	ErrValidation                = errors.New("invalid input")
)
