package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

// SessionRepository keeps server-side session records in Redis with a TTL.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new repository instance
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Save stores a session record that expires after ttl.
func (r *SessionRepository) Save(ctx context.Context, sessionID string, record models.SessionRecord, ttl time.Duration) error {
	key := sessionKey(sessionID)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	err = r.client.Set(ctx, key, data, ttl).Err()

	logger.Log.Debugw("session save",
		"session", logger.Fingerprint(sessionID),
		"user_id", record.UserID,
		"ttl", ttl,
		"error", err,
	)

	if err != nil {
		return common.Unavailable("save session", err)
	}
	return nil
}

// Get returns the session record, or common.ErrNotFound if it expired or never existed.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	key := sessionKey(sessionID)

	val, err := r.client.Get(ctx, key).Bytes()

	logger.Log.Debugw("session get",
		"session", logger.Fingerprint(sessionID),
		"error", err,
	)

	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.Unavailable("get session", err)
	}

	var record models.SessionRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("corrupt session record %s: %w", logger.Fingerprint(sessionID), common.ErrNotFound)
	}
	return &record, nil
}

// Delete removes the session record. Deleting a missing record is not an error.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	key := sessionKey(sessionID)

	removed, err := r.client.Del(ctx, key).Result()

	logger.Log.Debugw("session delete",
		"session", logger.Fingerprint(sessionID),
		"result", removed,
		"error", err,
	)

	if err != nil {
		return common.Unavailable("delete session", err)
	}
	return nil
}
