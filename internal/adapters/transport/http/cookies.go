package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokenforge/auth-service/internal/domain/auth/model"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

type CookieOptions struct {
	Domain string
	Secure bool
}

func (o CookieOptions) setTokens(c *gin.Context, pair model.TokenPair) {
	c.SetSameSite(stdhttp.SameSiteStrictMode)
	c.SetCookie(AccessTokenCookie, pair.AccessToken, int(pair.AccessTTL.Seconds()), "/", o.Domain, o.Secure, true)
	c.SetCookie(RefreshTokenCookie, pair.RefreshToken, int(pair.RefreshTTL.Seconds()), "/", o.Domain, o.Secure, true)
}

func (o CookieOptions) clearTokens(c *gin.Context) {
	c.SetSameSite(stdhttp.SameSiteStrictMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", o.Domain, o.Secure, true)
	c.SetCookie(RefreshTokenCookie, "", -1, "/", o.Domain, o.Secure, true)
}
