package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=middlewares

// Tokener extracts the session token from a request.
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
}

// CurrentUserGetter resolves a session token to its user.
type CurrentUserGetter interface {
	CurrentUser(ctx context.Context, token string) (*models.PublicUser, error)
}

// AuthMiddleware rejects requests without a live session and stores the
// session user in the request context.
func AuthMiddleware(tokener Tokener, svc CurrentUserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, err := tokener.GetTokenFromRequest(ctx, r)
			if err != nil {
				logger.Log.Debugw("authorization failed", "request_id", RequestIDFromContext(ctx), "err", err)
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := svc.CurrentUser(ctx, tokenString)
			switch {
			case err == nil:
			case errors.Is(err, common.ErrUnauthorized):
				logger.Log.Debugw("authorization failed", "request_id", RequestIDFromContext(ctx), "token", logger.Fingerprint(tokenString))
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			case errors.Is(err, common.ErrStorageUnavailable):
				logger.Log.Errorw("session lookup unavailable", "request_id", RequestIDFromContext(ctx), "err", err)
				writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			default:
				logger.Log.Errorw("session lookup failed", "request_id", RequestIDFromContext(ctx), "err", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}
