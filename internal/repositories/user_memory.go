package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

// MemoryUserRepository is an in-process credential store with the same
// normalization and uniqueness contract as UserRepository.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[uuid.UUID]*models.User
	byUsername map[string]uuid.UUID
	byEmail    map[string]uuid.UUID
	now        func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[uuid.UUID]*models.User),
		byUsername: make(map[string]uuid.UUID),
		byEmail:    make(map[string]uuid.UUID),
		now:        time.Now,
	}
}

func (r *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byUsername, identity.Normalize(username)), nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.byEmail, identity.Normalize(email)), nil
}

// lookup returns a copy so callers cannot mutate stored records.
func (r *MemoryUserRepository) lookup(index map[string]uuid.UUID, key string) *models.User {
	id, ok := index[key]
	if !ok {
		return nil
	}
	u := *r.byID[id]
	return &u
}

// Create checks both unique keys and inserts under one write lock.
func (r *MemoryUserRepository) Create(ctx context.Context, candidate models.NewUser) (*models.User, error) {
	username := identity.Normalize(candidate.Username)
	if username == "" {
		return nil, common.ErrInvalidInput
	}
	email := normalizeEmail(candidate.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[username]; taken {
		return nil, &common.ConflictError{Field: common.FieldUsername}
	}
	if email != nil {
		if _, taken := r.byEmail[*email]; taken {
			return nil, &common.ConflictError{Field: common.FieldEmail}
		}
	}

	now := r.now()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: candidate.PasswordHash,
		Name:         candidate.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[user.ID] = user
	r.byUsername[username] = user.ID
	if email != nil {
		r.byEmail[*email] = user.ID
	}

	out := *user
	return &out, nil
}
