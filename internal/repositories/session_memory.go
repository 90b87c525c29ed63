package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

type memorySession struct {
	record    models.SessionRecord
	expiresAt time.Time
}

// MemorySessionRepository is an in-process session store used in memory mode and tests.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (r *MemorySessionRepository) Save(ctx context.Context, sessionID string, record models.SessionRecord, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = memorySession{record: record, expiresAt: r.now().Add(ttl)}
	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if !r.now().Before(s.expiresAt) {
		delete(r.sessions, sessionID)
		return nil, common.ErrNotFound
	}
	record := s.record
	return &record, nil
}

func (r *MemorySessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}
