package models

// RegisterRequest represents the JSON body for user registration
// swagger:model RegisterRequest
type RegisterRequest struct {
	// Username
	// required: true
	// example: john_doe
	Username string `json:"username"`

	// Password
	// required: true
	// example: secret123
	Password string `json:"password"`

	// Display name
	// example: John Doe
	Name string `json:"name"`

	// Email
	// example: john@example.com
	Email string `json:"email,omitempty"`
}

// UserResponse wraps a sanitized user
// swagger:model UserResponse
type UserResponse struct {
	User *PublicUser `json:"user"`
}

// ErrorResponse represents an error response
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// example: Username already taken
	Error string `json:"error"`
}
