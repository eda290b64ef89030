package password

import (
	"context"
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	customErrors "github.com/tokenforge/auth-service/internal/domain/auth/errors"
)

const (
	AlgoBcrypt   = "bcrypt"
	AlgoArgon2id = "argon2id"

	DefaultBcryptCost = 10
)

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

type Options struct {
	Algorithm   string
	BcryptCost  int
	Concurrency int
}

// Hasher produces self-describing salted hashes and checks plaintext against
// them. At most Concurrency hash computations run at once.
type Hasher struct {
	algo string
	cost int
	sem  *semaphore.Weighted
}

func New(opts Options) (*Hasher, error) {
	algo := strings.ToLower(opts.Algorithm)
	if algo == "" {
		algo = AlgoBcrypt
	}
	if algo != AlgoBcrypt && algo != AlgoArgon2id {
		return nil, customErrors.NewInvalidArgument("unknown password hash algorithm " + opts.Algorithm)
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, customErrors.NewInvalidArgument("bcrypt cost out of range")
	}

	n := opts.Concurrency
	if n < 1 {
		n = 1
	}
	return &Hasher{algo: algo, cost: cost, sem: semaphore.NewWeighted(int64(n))}, nil
}

func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	switch h.algo {
	case AlgoArgon2id:
		hash, err := argon2id.CreateHash(plaintext, argonParams)
		if err != nil {
			return "", customErrors.WrapInternal(err, "argon2id hash")
		}
		return hash, nil
	default:
		hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		if err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				return "", customErrors.NewInvalidArgument("password too long")
			}
			return "", customErrors.WrapInternal(err, "bcrypt hash")
		}
		return string(hash), nil
	}
}

// Verify reports whether plaintext matches hash. A mismatch is (false, nil);
// an unreadable hash is ErrMalformedHash.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	switch {
	case isBcrypt(hash):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, errors.Join(customErrors.ErrMalformedHash, err)
		}
	case strings.HasPrefix(hash, "$argon2id$"):
		ok, err := argon2id.ComparePasswordAndHash(plaintext, hash)
		if err != nil {
			return false, errors.Join(customErrors.ErrMalformedHash, err)
		}
		return ok, nil
	default:
		return false, customErrors.ErrMalformedHash
	}
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
