package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

type AccessClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	TokenUse string `json:"token_use"`
}

type JWTUtil interface {
	GenerateAccessToken(subject, role string) (token string, exp time.Time, err error)
	GenerateRefreshToken(subject, role, jti string) (token string, exp time.Time, err error)
	ValidateAccessToken(token string) (claims AccessClaims, err error)
	ValidateRefreshToken(token string) (claims RefreshClaims, err error)
}
