package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
	"github.com/velostore/ordercore/internal/domain/status"
	"github.com/velostore/ordercore/internal/server/http/middleware"
)

// CurrentRole extracts the caller's role set by the actor middleware.
func CurrentRole(c *gin.Context) status.Role {
	val, ok := c.Get(middleware.ActorRoleContextKey)
	if !ok {
		return status.RoleCustomer
	}
	role, ok := val.(status.Role)
	if !ok {
		return status.RoleCustomer
	}
	return role
}

// orderIDParam parses the :id path segment.
func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.Status(http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusFromError maps domain sentinels onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrInvalidTransition),
		errors.Is(err, domainErrors.ErrConflict),
		errors.Is(err, domainErrors.ErrAlreadyExists),
		errors.Is(err, domainErrors.ErrAlreadyProcessed),
		errors.Is(err, domainErrors.ErrInsufficientStock),
		errors.Is(err, domainErrors.ErrInsufficientPhysicalStock),
		errors.Is(err, domainErrors.ErrDiscountLimitReached):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
