package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tokenforge/auth-service/internal/domain/auth/dto"
	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
	"github.com/tokenforge/auth-service/internal/domain/auth/jwt"
	"github.com/tokenforge/auth-service/internal/domain/auth/model"
	"github.com/tokenforge/auth-service/internal/domain/auth/repo"
)

// PasswordHasher is the credential verifier used on the register and login paths.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
}

type Service interface {
	Register(context.Context, dto.RegisterDTO) (model.TokenPair, error)
	Login(context.Context, dto.LoginDTO) (model.TokenPair, error)
	Self(context.Context, jwt.AccessClaims) (model.User, error)
	Refresh(context.Context, dto.RefreshDTO) (model.TokenPair, error)
	Logout(context.Context, dto.LogoutDTO) error
}

type authService struct {
	userRepo  repo.UserRepo
	tokenRepo repo.RefreshTokenRepo
	jwtUtil   jwt.JWTUtil
	hasher    PasswordHasher
	v         *validator.Validate
	log       *zap.Logger

	refreshTTL time.Duration
	now        func() time.Time
}

type Deps struct {
	Users      repo.UserRepo
	Tokens     repo.RefreshTokenRepo
	JWT        jwt.JWTUtil
	Hasher     PasswordHasher
	Validator  *validator.Validate
	Logger     *zap.Logger
	RefreshTTL time.Duration
	Now        func() time.Time
}

func New(d Deps) Service {
	v := d.Validator
	if v == nil {
		v = NewValidator()
	}
	lg := d.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &authService{
		userRepo:   d.Users,
		tokenRepo:  d.Tokens,
		jwtUtil:    d.JWT,
		hasher:     d.Hasher,
		v:          v,
		log:        lg.Named("auth"),
		refreshTTL: d.RefreshTTL,
		now:        now,
	}
}

func (a *authService) Register(ctx context.Context, in dto.RegisterDTO) (model.TokenPair, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)

	if err := a.validate(in); err != nil {
		return model.TokenPair{}, err
	}

	a.log.Debug("new request to register a user",
		zap.String("firstName", in.FirstName),
		zap.String("lastName", in.LastName),
		zap.String("email", in.Email),
	)

	_, err := a.userRepo.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return model.TokenPair{}, customErrors.ErrAlreadyExists
	case !errors.Is(err, customErrors.ErrNotFound):
		return model.TokenPair{}, a.storageFailure("GetUserByEmail", err)
	}

	passwordHash, err := a.hasher.Hash(ctx, in.Password)
	if err != nil {
		if customErrors.IsInvalidArgument(err) {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	user := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Role:         model.RoleCustomer,
	}
	user.ID, err = a.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.TokenPair{}, customErrors.ErrAlreadyExists
		}
		return model.TokenPair{}, a.storageFailure("CreateUser", err)
	}
	a.log.Info("user has been registered", zap.Uint("id", user.ID))

	return a.issueTokens(ctx, user)
}

func (a *authService) Login(ctx context.Context, in dto.LoginDTO) (model.TokenPair, error) {
	in.Email = normalizeEmail(in.Email)

	if err := a.validate(in); err != nil {
		return model.TokenPair{}, err
	}

	a.log.Debug("new request to login a user", zap.String("email", in.Email), zap.String("password", "****"))

	user, err := a.userRepo.GetUserByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.TokenPair{}, a.storageFailure("GetUserByEmail", err)
	}

	ok, err := a.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		if customErrors.IsMalformedHash(err) {
			a.log.Error("stored password hash unusable", zap.Uint("id", user.ID), zap.Error(err))
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	}

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		return model.TokenPair{}, err
	}
	a.log.Info("user has been logged in", zap.Uint("id", user.ID))
	return pair, nil
}

// Self resolves the user behind access token claims that have already been
// verified with ValidateAccessToken.
func (a *authService) Self(ctx context.Context, claims jwt.AccessClaims) (model.User, error) {
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return model.User{}, customErrors.ErrInvalidToken
	}

	user, err := a.userRepo.GetUserByID(ctx, uint(id))
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.User{}, customErrors.ErrNotFound
	case err != nil:
		return model.User{}, a.storageFailure("GetUserByID", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// Refresh rotates a refresh token: the presented record is consumed and a new
// pair is issued with the user's current role. Only one of several concurrent
// presentations of the same token wins the consume.
func (a *authService) Refresh(ctx context.Context, in dto.RefreshDTO) (model.TokenPair, error) {
	if err := a.validate(in); err != nil {
		return model.TokenPair{}, err
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(in.RefreshToken)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}

	tokenID, userID, err := parseRefreshClaims(claims)
	if err != nil {
		return model.TokenPair{}, err
	}

	record, err := a.tokenRepo.FindByID(ctx, tokenID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		a.log.Warn("refresh token not found, possibly revoked", zap.Uint("jti", tokenID))
		return model.TokenPair{}, customErrors.ErrInvalidToken
	case err != nil:
		return model.TokenPair{}, a.storageFailure("FindRefreshToken", err)
	}
	if record.UserID != userID || record.Expired(a.now()) {
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}

	consumed, err := a.tokenRepo.Consume(ctx, tokenID)
	if err != nil {
		return model.TokenPair{}, a.storageFailure("ConsumeRefreshToken", err)
	}
	if !consumed {
		a.log.Warn("refresh token already rotated", zap.Uint("jti", tokenID))
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}

	user, err := a.userRepo.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		return model.TokenPair{}, customErrors.ErrInvalidToken
	case err != nil:
		return model.TokenPair{}, a.storageFailure("GetUserByID", err)
	}

	return a.issueTokens(ctx, user)
}

// Logout revokes the refresh token. Revoking an already revoked token is fine.
func (a *authService) Logout(ctx context.Context, in dto.LogoutDTO) error {
	if err := a.validate(in); err != nil {
		return err
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(in.RefreshToken)
	if err != nil {
		return customErrors.ErrInvalidToken
	}
	tokenID, _, err := parseRefreshClaims(claims)
	if err != nil {
		return err
	}

	if err := a.tokenRepo.Delete(ctx, tokenID); err != nil {
		return a.storageFailure("DeleteRefreshToken", err)
	}
	a.log.Info("refresh token revoked", zap.Uint("jti", tokenID), zap.String("sub", claims.Subject))
	return nil
}

// issueTokens persists the refresh record before anything is signed, so a
// failure leaves at most an unused record and never a token without one.
func (a *authService) issueTokens(ctx context.Context, user model.User) (model.TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "issueTokens")
	}

	// token expiries have second precision
	issuedAt := a.now().Truncate(time.Second)
	subject := strconv.FormatUint(uint64(user.ID), 10)
	role := string(user.Role)

	rtID, err := a.tokenRepo.Create(ctx, user.ID, a.now().Add(a.refreshTTL))
	if err != nil {
		return model.TokenPair{}, a.storageFailure("CreateRefreshToken", err)
	}

	at, atExp, err := a.jwtUtil.GenerateAccessToken(subject, role)
	if err != nil {
		a.log.Error("cannot sign access token", zap.Uint("jti", rtID), zap.Error(err))
		if customErrors.IsKeyUnavailable(err) {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, err := a.jwtUtil.GenerateRefreshToken(subject, role, strconv.FormatUint(uint64(rtID), 10))
	if err != nil {
		a.log.Error("cannot sign refresh token", zap.Uint("jti", rtID), zap.Error(err))
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	return model.TokenPair{
		AccessToken:    at,
		RefreshToken:   rt,
		AccessTTL:      atExp.Sub(issuedAt),
		RefreshTTL:     rtExp.Sub(issuedAt),
		UserID:         user.ID,
		RefreshTokenID: rtID,
	}, nil
}

func (a *authService) storageFailure(op string, err error) error {
	a.log.Error("storage failure", zap.String("op", op), zap.Error(err))
	if customErrors.IsStorage(err) {
		return err
	}
	return customErrors.WrapStorage(err, op)
}

func parseRefreshClaims(c jwt.RefreshClaims) (tokenID, userID uint, err error) {
	jti, err := strconv.ParseUint(c.ID, 10, 64)
	if err != nil {
		return 0, 0, customErrors.ErrInvalidToken
	}
	sub, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, 0, customErrors.ErrInvalidToken
	}
	return uint(jti), uint(sub), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
