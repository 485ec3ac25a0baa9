package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/velostore/ordercore/internal/server/http/dto"
)

// DiscountHandler serves the monthly discount allowance check.
type DiscountHandler struct {
	facade DiscountFacade
}

// NewDiscountHandler constructs DiscountHandler.
func NewDiscountHandler(facade DiscountFacade) *DiscountHandler {
	return &DiscountHandler{facade: facade}
}

// Eligibility handles GET /api/discounts/eligibility?userId=N.
func (h *DiscountHandler) Eligibility(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	eligibility, err := h.facade.DiscountEligibility(c.Request.Context(), userID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	response := dto.EligibilityResponse{
		Eligible:  eligibility.Eligible,
		Remaining: eligibility.Remaining,
	}
	if eligibility.Tier != nil {
		response.TierName = eligibility.Tier.Name
		response.DiscountPercent = eligibility.Tier.DiscountPercent
	}

	c.JSON(http.StatusOK, response)
}
