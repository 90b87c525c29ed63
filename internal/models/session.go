package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the reference handed back to the transport layer after a
// successful register, login or external identity upsert.
type Session struct {
	Token     string    // Opaque session token, placed into a cookie by the caller
	UserID    uuid.UUID // Authenticated user
	ExpiresAt time.Time // Token and server-side record expiry
}

// SessionRecord is the server-side state of a session, keyed by session id.
type SessionRecord struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
