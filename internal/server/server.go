// Package server assembles the HTTP engine from the feature modules.
package server

import (
	"net/http"

	"pulsegen/internal/middleware"
	"pulsegen/internal/modules/auth"
	"pulsegen/internal/modules/video"
	"pulsegen/internal/notify"
	"pulsegen/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Deps struct {
	Logger       *zap.Logger
	JWT          *jwt.Service
	Auth         *auth.Handler
	Videos       *video.Handler
	Notify       *notify.Handler
	CORSOrigins  []string
	HealthChecks []func() error
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.ErrorLogger(d.Logger),
		middleware.RequestLogger(d.Logger),
		middleware.CORS(d.CORSOrigins),
		middleware.Metrics(),
	)

	r.GET("/health", func(c *gin.Context) {
		for _, check := range d.HealthChecks {
			if err := check(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.Notify != nil {
		d.Notify.RegisterRoutes(r)
	}

	v1 := r.Group("/api/v1")
	if d.Auth != nil {
		d.Auth.RegisterPublicRoutes(v1)
		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(d.JWT))
		d.Auth.RegisterProtectedRoutes(protected)
	}
	if d.Videos != nil {
		d.Videos.RegisterRoutes(v1, d.JWT)
	}

	return r
}
