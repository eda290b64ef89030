package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokenforge/auth-service/internal/adapters/transport/http/middleware"
	"github.com/tokenforge/auth-service/internal/app/auth/keys"
	"github.com/tokenforge/auth-service/internal/app/auth/service"
	"github.com/tokenforge/auth-service/internal/domain/auth/dto"
	authErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
	"github.com/tokenforge/auth-service/internal/infra/health"
)

type Handler struct {
	svc     service.Service
	keys    keys.Provider
	cookies CookieOptions
	checks  health.Checks
	log     *zap.Logger
}

func NewHandler(svc service.Service, kp keys.Provider, cookies CookieOptions, checks health.Checks, log *zap.Logger) *Handler {
	return &Handler{svc: svc, keys: kp, cookies: cookies, checks: checks, log: log}
}

func (h *Handler) Register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, h.log, authErrors.NewInvalidArgument("malformed request body"))
		return
	}

	pair, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.cookies.setTokens(c, pair)
	c.JSON(stdhttp.StatusCreated, gin.H{"id": pair.UserID})
}

func (h *Handler) Login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, h.log, authErrors.NewInvalidArgument("malformed request body"))
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.cookies.setTokens(c, pair)
	c.JSON(stdhttp.StatusOK, gin.H{"id": pair.UserID})
}

func (h *Handler) Self(c *gin.Context) {
	claims, ok := middleware.AccessClaims(c)
	if !ok {
		writeError(c, h.log, authErrors.ErrInvalidToken)
		return
	}
	user, err := h.svc.Self(c.Request.Context(), claims)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(stdhttp.StatusOK, user)
}

func (h *Handler) Refresh(c *gin.Context) {
	pair, err := h.svc.Refresh(c.Request.Context(), dto.RefreshDTO{RefreshToken: h.refreshToken(c)})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.cookies.setTokens(c, pair)
	c.JSON(stdhttp.StatusOK, gin.H{"id": pair.UserID})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), dto.LogoutDTO{RefreshToken: h.refreshToken(c)}); err != nil {
		writeError(c, h.log, err)
		return
	}
	h.cookies.clearTokens(c)
	c.JSON(stdhttp.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) JWKS(c *gin.Context) {
	set, err := keys.PublishJWKS(h.keys)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(stdhttp.StatusOK, set)
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := h.checks.Run(ctx)
	status := stdhttp.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, name := range h.checks.Names() {
		if err, ok := failed[name]; ok {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = stdhttp.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	state := "ok"
	if status != stdhttp.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": deps, "time": time.Now().Unix()})
}

func (h *Handler) fail(c *gin.Context, err error) {
	writeError(c, h.log, err)
}

// refreshToken reads the refresh token from its cookie, falling back to a
// JSON body for non-browser clients.
func (h *Handler) refreshToken(c *gin.Context) string {
	if v, err := c.Cookie(RefreshTokenCookie); err == nil && v != "" {
		return v
	}
	var body dto.RefreshDTO
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&body)
	}
	return body.RefreshToken
}
