package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

//go:generate mockgen -source=register.go -destination=mock_register.go -package=handlers

// Registerer defines the interface that the service must implement.
type Registerer interface {
	Register(ctx context.Context, username, password, name, email string) (*models.PublicUser, *models.Session, error)
}

// NewRegisterHandler returns an HTTP handler for user registration.
// @Summary Register a new user
// @Description Creates a local account and signs it in. Username and email are unique after trim and lowercase.
// @Tags auth
// @Accept json
// @Produce json
// @Param registerRequest body models.RegisterRequest true "User registration request"
// @Success 201 {object} models.UserResponse "User registered, session cookie set"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 409 {object} models.ErrorResponse "Username or email already taken"
// @Failure 503 {object} models.ErrorResponse "Storage unavailable"
// @Router /register [post]
func NewRegisterHandler(svc Registerer, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, session, err := svc.Register(r.Context(), req.Username, req.Password, req.Name, req.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}

		cookie.Set(w, session)
		writeJSON(w, http.StatusCreated, models.UserResponse{User: user})
	}
}
