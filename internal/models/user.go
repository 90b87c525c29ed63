package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user record in the database.
// Username and Email are stored normalized (trimmed, lowercased).
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`                       // Primary key
	Username     string    `json:"username" db:"username"`           // Unique, normalized
	Email        *string   `json:"email,omitempty" db:"email"`       // Optional, unique when present
	PasswordHash string    `json:"-" db:"password_hash"`             // bcrypt hash, never serialized
	Name         string    `json:"name" db:"name"`                   // Display name
	Bio          string    `json:"bio" db:"bio"`                     // Profile bio
	ProfileImage string    `json:"profile_image" db:"profile_image"` // Profile image URL
	CreatedAt    time.Time `json:"created_at" db:"created_at"`       // Creation timestamp
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`       // Last update timestamp
}

// NewUser is the input of a credential store create.
type NewUser struct {
	Username     string
	Email        *string
	PasswordHash string
	Name         string
}

// PublicUser is the sanitized view of a User returned to clients.
// swagger:model PublicUser
type PublicUser struct {
	// User ID
	// example: 2f1c3a52-5d0e-4b7e-9d7b-1b2c3d4e5f60
	ID uuid.UUID `json:"id"`

	// Normalized username
	// example: john_doe
	Username string `json:"username"`

	// Normalized email
	// example: john@example.com
	Email string `json:"email,omitempty"`

	// Display name
	// example: John Doe
	Name string `json:"name"`

	// Profile bio
	Bio string `json:"bio"`

	// Profile image URL
	ProfileImage string `json:"profile_image"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public returns the sanitized view of u.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	p := &PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Bio:          u.Bio,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	return p
}
