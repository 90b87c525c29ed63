package handlers

import (
	"context"
	"net/http"
)

//go:generate mockgen -source=logout.go -destination=mock_logout.go -package=handlers

// Logouter defines the interface that the logout service must implement.
type Logouter interface {
	Logout(ctx context.Context, token string) error
}

// Tokener extracts the session token from a request.
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
}

// NewLogoutHandler returns an HTTP handler ending the current session.
// @Summary Logout
// @Description Invalidates the session and clears the cookie. Unknown or expired sessions are accepted.
// @Tags auth
// @Success 204 "Signed out"
// @Failure 503 {object} models.ErrorResponse "Storage unavailable"
// @Router /logout [post]
func NewLogoutHandler(svc Logouter, tokener Tokener, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A missing token is an already ended session.
		token, _ := tokener.GetTokenFromRequest(r.Context(), r)

		if err := svc.Logout(r.Context(), token); err != nil {
			writeError(w, r, err)
			return
		}

		cookie.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}
