package auth

import (
	"errors"
	"net/http"
	"time"

	"pulsegen/internal/middleware"
	"pulsegen/internal/pkg/response"
	"pulsegen/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service   *Service
	accessTTL time.Duration
}

func NewHandler(service *Service, accessTTL time.Duration) *Handler {
	return &Handler{service: service, accessTTL: accessTTL}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me", h.GetMe)
}

// Register creates a viewer or editor account and returns an access token.
// @Summary  Register
// @Tags     Auth
// @Param    request body RegisterRequest true "username, email, password, role"
// @Success  201
// @Failure  400,403,409
// @Router   /auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserAlreadyExists):
			response.Error(c, http.StatusConflict, "USER_EXISTS", "Username or email is already registered")
		case errors.Is(err, ErrRoleNotAllowed):
			response.Error(c, http.StatusForbidden, "ROLE_NOT_ALLOWED", "This role cannot be self-assigned")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register user")
		}
		return
	}

	response.Success(c, http.StatusCreated, h.tokenResponse(res))
}

// Login exchanges username and password for an access token.
// @Summary  Login
// @Tags     Auth
// @Param    request body LoginRequest true "username, password"
// @Success  200
// @Failure  400,401
// @Router   /auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	response.Success(c, http.StatusOK, h.tokenResponse(res))
}

// GetMe returns the authenticated user.
// @Summary  Current user
// @Tags     Auth
// @Security BearerAuth
// @Router   /users/me [GET]
func (h *Handler) GetMe(c *gin.Context) {
	userID, _, ok := middleware.Caller(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.service.GetMe(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User no longer exists")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": ToUserPublic(user)})
}

func (h *Handler) tokenResponse(res *LoginResult) gin.H {
	return gin.H{
		"user": ToUserPublic(res.User),
		"tokens": gin.H{
			"access_token": res.AccessToken,
			"token_type":   "Bearer",
			"expires_in":   int(h.accessTTL.Seconds()),
		},
	}
}
