package middleware

import (
	"net/http"

	"pulsegen/internal/policy"
	"pulsegen/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequirePermission gates collection-level actions (upload, list) through
// the policy matrix. Per-resource ownership is decided by the services.
func RequirePermission(action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := Caller(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		if !policy.Evaluate(role, action, userID, 0).Allowed() {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}

		c.Next()
	}
}
