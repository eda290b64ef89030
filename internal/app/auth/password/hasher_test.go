package password

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
)

func newHasher(t *testing.T, algo string) *Hasher {
	t.Helper()
	h, err := New(Options{Algorithm: algo, BcryptCost: bcrypt.MinCost, Concurrency: 2})
	require.NoError(t, err)
	return h
}

func TestHasher_DefaultIsBcryptCost10(t *testing.T) {
	h, err := New(Options{})
	require.NoError(t, err)

	hash, err := h.Hash(context.Background(), "password1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$2a$10$"), hash)
}

func TestHasher_SaltedAndVerifiable(t *testing.T) {
	for _, algo := range []string{AlgoBcrypt, AlgoArgon2id} {
		t.Run(algo, func(t *testing.T) {
			h := newHasher(t, algo)
			ctx := context.Background()

			a, err := h.Hash(ctx, "password1")
			require.NoError(t, err)
			b, err := h.Hash(ctx, "password1")
			require.NoError(t, err)

			require.NotEqual(t, "password1", a)
			require.NotEqual(t, a, b)

			for _, hash := range []string{a, b} {
				ok, err := h.Verify(ctx, "password1", hash)
				require.NoError(t, err)
				require.True(t, ok)
			}
		})
	}
}

func TestHasher_MismatchIsNotAnError(t *testing.T) {
	h := newHasher(t, AlgoBcrypt)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "password1")
	require.NoError(t, err)

	ok, err := h.Verify(ctx, "password2", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHasher_VerifiesAcrossAlgorithms(t *testing.T) {
	ctx := context.Background()
	argonHash, err := newHasher(t, AlgoArgon2id).Hash(ctx, "password1")
	require.NoError(t, err)

	ok, err := newHasher(t, AlgoBcrypt).Verify(ctx, "password1", argonHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHasher_MalformedHash(t *testing.T) {
	h := newHasher(t, AlgoBcrypt)
	ctx := context.Background()

	for _, hash := range []string{"", "plaintext", "$2a$10$short", "$argon2id$v=19$broken"} {
		ok, err := h.Verify(ctx, "password1", hash)
		require.False(t, ok)
		require.Error(t, err, hash)
		require.True(t, customErrors.IsMalformedHash(err), hash)
	}
}

func TestHasher_PasswordTooLong(t *testing.T) {
	h := newHasher(t, AlgoBcrypt)
	_, err := h.Hash(context.Background(), strings.Repeat("x", 73))
	require.True(t, customErrors.IsInvalidArgument(err))
}

func TestHasher_RespectsCancellation(t *testing.T) {
	h, err := New(Options{BcryptCost: bcrypt.MinCost, Concurrency: 1})
	require.NoError(t, err)

	// hold the only slot
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = h.Hash(ctx, "password1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_RejectsUnknownAlgorithm(t *testing.T) {
	_, err := New(Options{Algorithm: "md5"})
	require.True(t, customErrors.IsInvalidArgument(err))
}
