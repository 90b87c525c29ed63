package handlers

import (
	"net/http"

	"github.com/sbilibin2017/linkbio-auth/internal/middlewares"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

// NewMeHandler returns the user resolved by middlewares.AuthMiddleware.
// @Summary Current user
// @Description Returns the signed-in user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse "Current user"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /me [get]
func NewMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middlewares.UserFromContext(r.Context())
		if user == nil {
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, models.UserResponse{User: user})
	}
}
