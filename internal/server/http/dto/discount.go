package dto

// EligibilityResponse reports the remaining monthly discount allowance.
type EligibilityResponse struct {
	Eligible        bool    `json:"eligible"`
	Remaining       int     `json:"remaining"`
	TierName        string  `json:"tierName,omitempty"`
	DiscountPercent float64 `json:"discountPercent,omitempty"`
}
