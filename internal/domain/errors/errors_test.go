package errors

import (
	stdErrors "errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"not found", ErrNotFound},
		{"already exists", ErrAlreadyExists},
		{"invalid transition", ErrInvalidTransition},
		{"forbidden", ErrForbidden},
		{"conflict", ErrConflict},
		{"insufficient stock", ErrInsufficientStock},
		{"insufficient physical stock", ErrInsufficientPhysicalStock},
		{"signature invalid", ErrSignatureInvalid},
		{"amount mismatch", ErrAmountMismatch},
		{"already processed", ErrAlreadyProcessed},
		{"discount limit", ErrDiscountLimitReached},
		{"validation", ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !stdErrors.Is(tc.err, tc.err) {
				t.Fatalf("expected error to match itself: %v", tc.err)
			}
		})
	}
}
