package video

import (
	"pulsegen/internal/middleware"
	"pulsegen/internal/pkg/jwt"
	"pulsegen/internal/policy"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts /videos under v1. The stream route authenticates on
// its own so it can accept a query token; everything else uses bearer auth.
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup, jwtService *jwt.Service) {
	videos := v1.Group("/videos")

	streaming := videos.Group("")
	streaming.Use(middleware.StreamAuth(jwtService))
	{
		streaming.GET("/:id/stream", h.Stream)
		streaming.HEAD("/:id/stream", h.Stream)
	}

	protected := videos.Group("")
	protected.Use(middleware.JWTAuth(jwtService))
	{
		protected.POST("", middleware.RequirePermission(policy.ActionVideoUpload), h.Upload)
		protected.GET("", middleware.RequirePermission(policy.ActionVideoList), h.List)
		protected.GET("/:id", h.Get)
		protected.DELETE("/:id", h.Delete)
		protected.POST("/:id/analyze", h.Analyze)
	}
}
