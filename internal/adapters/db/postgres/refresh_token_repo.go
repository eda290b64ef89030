package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
	"github.com/tokenforge/auth-service/internal/domain/auth/model"
)

type RefreshTokenRepo struct {
	db *gorm.DB
}

func NewRefreshTokenRepo(db *gorm.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

// Create inserts the record and returns its id once the insert has committed.
func (r *RefreshTokenRepo) Create(ctx context.Context, userID uint, expiresAt time.Time) (uint, error) {
	rt := model.RefreshToken{UserID: userID, ExpiresAt: expiresAt.UTC()}
	if err := r.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return 0, customErrors.WrapStorage(err, "CreateRefreshToken")
	}
	return rt.ID, nil
}

func (r *RefreshTokenRepo) FindByID(ctx context.Context, id uint) (model.RefreshToken, error) {
	var rt model.RefreshToken
	res := r.db.WithContext(ctx).Where("id = ?", id).First(&rt)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.RefreshToken{}, customErrors.ErrNotFound
	}
	if err := res.Error; err != nil {
		return model.RefreshToken{}, customErrors.WrapStorage(err, "FindRefreshToken")
	}
	return rt, nil
}

func (r *RefreshTokenRepo) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.RefreshToken{}, id).Error; err != nil {
		return customErrors.WrapStorage(err, "DeleteRefreshToken")
	}
	return nil
}

func (r *RefreshTokenRepo) Consume(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.RefreshToken{}, id)
	if err := res.Error; err != nil {
		return false, customErrors.WrapStorage(err, "ConsumeRefreshToken")
	}
	return res.RowsAffected == 1, nil
}

func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", before.UTC()).
		Delete(&model.RefreshToken{})
	if err := res.Error; err != nil {
		return 0, customErrors.WrapStorage(err, "DeleteExpiredRefreshTokens")
	}
	return res.RowsAffected, nil
}
