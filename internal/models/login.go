package models

// LoginRequest represents the JSON body for user login
// swagger:model LoginRequest
type LoginRequest struct {
	// Username or email
	// required: true
	// example: john_doe
	Identifier string `json:"identifier"`

	// Password
	// required: true
	// example: secret123
	Password string `json:"password"`
}
