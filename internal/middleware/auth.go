package middleware

import (
	"net/http"
	"strings"

	"pulsegen/internal/domain"
	"pulsegen/internal/pkg/jwt"
	"pulsegen/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// JWTAuth authenticates requests carrying "Authorization: Bearer <token>".
func JWTAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Missing Authorization header")
			return
		}
		token, ok := bearerToken(h)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be Bearer <token>")
			return
		}
		authenticate(c, j, token)
	}
}

// StreamAuth is JWTAuth that also accepts the token as a ?token= query
// parameter, since media elements cannot set request headers.
func StreamAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := strings.TrimSpace(c.Query("token")); token != "" {
			authenticate(c, j, token)
			return
		}

		h := c.GetHeader("Authorization")
		if h == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Missing Authorization header or token parameter")
			return
		}
		token, ok := bearerToken(h)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be Bearer <token>")
			return
		}
		authenticate(c, j, token)
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func authenticate(c *gin.Context, j *jwt.Service, token string) {
	claims, err := j.ValidateToken(token)
	if err != nil {
		response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Token carries an unknown role")
		return
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextRole, string(role))
	c.Next()
}

// Caller returns the authenticated identity stored by JWTAuth/StreamAuth.
func Caller(c *gin.Context) (int64, domain.UserRole, bool) {
	id := c.GetInt64(ContextUserID)
	role := domain.UserRole(c.GetString(ContextRole))
	if id == 0 || role == "" {
		return 0, "", false
	}
	return id, role, true
}
