package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
	"github.com/tokenforge/auth-service/internal/domain/auth/model"
)

const (
	seqKey    = "refresh_token:seq"
	keyPrefix = "refresh_token:"
)

// RedisTokenRepo keeps refresh token records as hashes that expire together
// with the token. Ids come from a monotonic INCR counter.
type RedisTokenRepo struct {
	client *redis.Client
}

func NewRedisTokenRepo(client *redis.Client) *RedisTokenRepo {
	return &RedisTokenRepo{
		client: client,
	}
}

func (r *RedisTokenRepo) Create(ctx context.Context, userID uint, expiresAt time.Time) (uint, error) {
	id, err := r.client.Incr(ctx, seqKey).Result()
	if err != nil {
		return 0, customErrors.WrapStorage(err, "CreateRefreshToken")
	}

	now := time.Now().UTC()
	key := tokenKey(uint(id))
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_id", userID,
			"expires_at", expiresAt.UTC().Unix(),
			"created_at", now.Unix(),
		)
		pipe.ExpireAt(ctx, key, expiresAt)
		return nil
	})
	if err != nil {
		return 0, customErrors.WrapStorage(err, "CreateRefreshToken")
	}
	return uint(id), nil
}

func (r *RedisTokenRepo) FindByID(ctx context.Context, id uint) (model.RefreshToken, error) {
	vals, err := r.client.HGetAll(ctx, tokenKey(id)).Result()
	if err != nil {
		return model.RefreshToken{}, customErrors.WrapStorage(err, "FindRefreshToken")
	}
	if len(vals) == 0 {
		return model.RefreshToken{}, customErrors.ErrNotFound
	}

	userID, err := strconv.ParseUint(vals["user_id"], 10, 64)
	if err != nil {
		return model.RefreshToken{}, customErrors.WrapStorage(err, "FindRefreshToken")
	}
	exp, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return model.RefreshToken{}, customErrors.WrapStorage(err, "FindRefreshToken")
	}
	created, _ := strconv.ParseInt(vals["created_at"], 10, 64)

	return model.RefreshToken{
		ID:        id,
		UserID:    uint(userID),
		ExpiresAt: time.Unix(exp, 0).UTC(),
		CreatedAt: time.Unix(created, 0).UTC(),
	}, nil
}

func (r *RedisTokenRepo) Delete(ctx context.Context, id uint) error {
	if err := r.client.Del(ctx, tokenKey(id)).Err(); err != nil {
		return customErrors.WrapStorage(err, "DeleteRefreshToken")
	}
	return nil
}

func (r *RedisTokenRepo) Consume(ctx context.Context, id uint) (bool, error) {
	n, err := r.client.Del(ctx, tokenKey(id)).Result()
	if err != nil {
		return false, customErrors.WrapStorage(err, "ConsumeRefreshToken")
	}
	return n == 1, nil
}

// DeleteExpired is a no-op: redis drops the keys at their expiry.
func (r *RedisTokenRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisTokenRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func tokenKey(id uint) string {
	return keyPrefix + strconv.FormatUint(uint64(id), 10)
}
