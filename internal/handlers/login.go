package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

//go:generate mockgen -source=login.go -destination=mock_login.go -package=handlers

// Loginer defines the interface that the login service must implement.
type Loginer interface {
	Login(ctx context.Context, identifier, password string) (*models.PublicUser, *models.Session, error)
}

// NewLoginHandler returns an HTTP handler for user login.
// @Summary User login
// @Description Authenticate by username or email and set the session cookie
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body models.LoginRequest true "Login Request"
// @Success 200 {object} models.UserResponse "Signed in, session cookie set"
// @Failure 400 {object} models.ErrorResponse "Invalid request body"
// @Failure 401 {object} models.ErrorResponse "Invalid username or password"
// @Failure 503 {object} models.ErrorResponse "Storage unavailable"
// @Router /login [post]
func NewLoginHandler(svc Loginer, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, session, err := svc.Login(r.Context(), req.Identifier, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		cookie.Set(w, session)
		writeJSON(w, http.StatusOK, models.UserResponse{User: user})
	}
}
