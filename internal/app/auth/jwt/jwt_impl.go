package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tokenforge/auth-service/internal/app/auth/keys"
	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
	jwt2 "github.com/tokenforge/auth-service/internal/domain/auth/jwt"
)

type Options struct {
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RefreshSecret []byte
	Leeway        time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// JwtUtilImpl signs access tokens with RS256 and refresh tokens with HS256.
// Access tokens are checked against the public key only, so any resource
// server holding the JWK can verify them.
type JwtUtilImpl struct {
	keys          keys.Provider
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	leeway        time.Duration
	now           func() time.Time
}

func NewJWTUtil(kp keys.Provider, opts Options) (*JwtUtilImpl, error) {
	if kp == nil {
		return nil, customErrors.WrapKeyUnavailable(errors.New("nil key provider"), "NewJWTUtil")
	}
	if len(opts.RefreshSecret) == 0 {
		return nil, customErrors.NewInvalidArgument("refresh token secret is empty")
	}
	if opts.Issuer == "" {
		return nil, customErrors.NewInvalidArgument("issuer is empty")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, customErrors.NewInvalidArgument("token TTLs must be positive")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &JwtUtilImpl{
		keys:          kp,
		refreshSecret: opts.RefreshSecret,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		issuer:        opts.Issuer,
		leeway:        opts.Leeway,
		now:           now,
	}, nil
}

func (j *JwtUtilImpl) GenerateAccessToken(subject, role string) (token string, exp time.Time, err error) {
	privateKey, err := j.keys.SigningKey()
	if err != nil {
		return "", time.Time{}, err
	}

	now := j.now()
	claims := jwt2.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
		},
		Role:     role,
		TokenUse: jwt2.UseAccess,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
	if err != nil {
		return "", time.Time{}, customErrors.WrapKeyUnavailable(err, "sign access token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

func (j *JwtUtilImpl) GenerateRefreshToken(subject, role, jti string) (token string, exp time.Time, err error) {
	if jti == "" {
		return "", time.Time{}, customErrors.NewInvalidArgument("refresh token id is empty")
	}

	now := j.now()
	claims := jwt2.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTTL)),
			ID:        jti,
		},
		Role:     role,
		TokenUse: jwt2.UseRefresh,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign refresh token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

func (j *JwtUtilImpl) ValidateAccessToken(raw string) (jwt2.AccessClaims, error) {
	publicKey, err := j.keys.VerificationKey()
	if err != nil {
		return jwt2.AccessClaims{}, err
	}

	var claims jwt2.AccessClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, j.parserOptions(jwt.SigningMethodRS256.Alg())...)

	if err != nil || !token.Valid {
		return jwt2.AccessClaims{}, customErrors.ErrInvalidToken
	}
	if claims.TokenUse != jwt2.UseAccess || claims.Subject == "" {
		return jwt2.AccessClaims{}, customErrors.ErrInvalidToken
	}

	return claims, nil
}

func (j *JwtUtilImpl) ValidateRefreshToken(raw string) (jwt2.RefreshClaims, error) {
	var claims jwt2.RefreshClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return j.refreshSecret, nil
	}, j.parserOptions(jwt.SigningMethodHS256.Alg())...)

	if err != nil || !token.Valid {
		return jwt2.RefreshClaims{}, customErrors.ErrInvalidToken
	}
	if claims.TokenUse != jwt2.UseRefresh || claims.Subject == "" || claims.ID == "" {
		return jwt2.RefreshClaims{}, customErrors.ErrInvalidToken
	}

	return claims, nil
}

func (j *JwtUtilImpl) parserOptions(alg string) []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
	}
}
