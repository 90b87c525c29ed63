// Package password hashes and verifies user passwords with bcrypt.
//
// bcrypt is CPU bound and deliberately slow, so every hash and verify call
// acquires a slot in a bounded lane before running. Requests that cannot get a
// slot wait without spinning and give up when their context is done.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
)

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

// ErrMismatch is returned by Verify when the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// Hasher hashes and verifies passwords.
type Hasher struct {
	cost  int
	lane  *semaphore.Weighted
	dummy []byte
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithCost sets the bcrypt cost. Values outside bcrypt's range fall back to bcrypt.DefaultCost.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithWorkers bounds how many hash computations may run at once.
func WithWorkers(n int) Option {
	return func(h *Hasher) {
		if n > 0 {
			h.lane = semaphore.NewWeighted(int64(n))
		}
	}
}

// New creates a Hasher. By default it uses bcrypt.DefaultCost and GOMAXPROCS workers.
func New(opts ...Option) (*Hasher, error) {
	h := &Hasher{
		cost: bcrypt.DefaultCost,
		lane: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
	for _, opt := range opts {
		opt(h)
	}

	// Verified against unknown identifiers so that a missing account costs
	// the same as a wrong password.
	dummy, err := bcrypt.GenerateFromPassword([]byte("linkbio-dummy-password"), h.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Hash derives a salted bcrypt hash of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if len(password) > MaxLength {
		return "", fmt.Errorf("%w: password longer than %d bytes", common.ErrInvalidInput, MaxLength)
	}

	if err := h.lane.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.lane.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks password against hash. It returns ErrMismatch when they do not match.
func (h *Hasher) Verify(ctx context.Context, hash, password string) error {
	if err := h.lane.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.lane.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		// malformed stored hash; treated as a mismatch by callers
		return fmt.Errorf("%w: %v", ErrMismatch, err)
	}
}

// VerifyDummy spends the same effort as Verify without a real account.
func (h *Hasher) VerifyDummy(ctx context.Context, password string) {
	_ = h.Verify(ctx, string(h.dummy), password)
}
