package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
	"github.com/sbilibin2017/linkbio-auth/internal/oauth"
)

// Generic login failure text. Never more specific.
const invalidCredentialsMessage = "Invalid username or password"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// writeError maps an auth error onto its HTTP status and public message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUsernameTaken):
		writeErrorMessage(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, common.ErrEmailTaken):
		writeErrorMessage(w, http.StatusConflict, "Email already taken")
	case errors.Is(err, common.ErrConflict):
		writeErrorMessage(w, http.StatusConflict, "Conflict, please retry")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, invalidCredentialsMessage)
	case errors.Is(err, common.ErrUnauthorized):
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, common.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, oauth.ErrExchange):
		logger.Log.Warnw("identity provider error", "path", r.URL.Path, "err", err)
		writeErrorMessage(w, http.StatusBadGateway, "Identity provider error")
	case errors.Is(err, common.ErrStorageUnavailable):
		logger.Log.Errorw("storage unavailable", "path", r.URL.Path, "err", err)
		writeErrorMessage(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logger.Log.Errorw("internal server error", "path", r.URL.Path, "err", err)
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
