package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/velostore/ordercore/internal/domain/status"
)

const (
	// ActorRoleContextKey is the gin context key holding the caller's role.
	ActorRoleContextKey = "actorRole"
	actorRoleHeader     = "X-Actor-Role"
)

// ActorRole maps the trusted role header set by the authenticating proxy to
// a transition role. Anything unknown, including an absent header, is a
// customer. RoleSystem is never accepted from the outside; it belongs to
// the sweepers and the payment reconciler.
func ActorRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := status.RoleCustomer
		if strings.EqualFold(c.GetHeader(actorRoleHeader), string(status.RoleStaff)) {
			role = status.RoleStaff
		}
		c.Set(ActorRoleContextKey, role)
		c.Next()
	}
}
