package repo

import (
	"context"
	"time"

	"github.com/tokenforge/auth-service/internal/domain/auth/model"
)

type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uint, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uint) (model.User, error)

	UpdateUser(ctx context.Context, u model.User) error

	DeleteUser(ctx context.Context, id uint) error
}

// RefreshTokenRepo persists one record per issued refresh token.
// Delete must be idempotent: unknown ids are not an error. Consume deletes
// the record and reports whether this call was the one that removed it.
type RefreshTokenRepo interface {
	Create(ctx context.Context, userID uint, expiresAt time.Time) (uint, error)

	FindByID(ctx context.Context, id uint) (model.RefreshToken, error)

	Delete(ctx context.Context, id uint) error

	Consume(ctx context.Context, id uint) (bool, error)

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
