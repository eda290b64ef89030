package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokenforge/auth-service/internal/adapters/transport/http/middleware"
	"github.com/tokenforge/auth-service/internal/domain/auth/jwt"
	"github.com/tokenforge/auth-service/internal/infra/metrics"
)

type RouterConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

func NewRouter(h *Handler, verifier jwt.JWTUtil, m *metrics.HTTP, cfg RouterConfig, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	if m != nil {
		router.Use(m.Middleware())
	}

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/", func(c *gin.Context) { c.String(200, "welcome to auth service") })
	router.GET("/health", h.Health)
	router.GET("/.well-known/jwks.json", h.JWKS)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	auth := router.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	auth.GET("/self", middleware.RequireAccessToken(verifier, AccessTokenCookie, h.fail), h.Self)

	return router
}
