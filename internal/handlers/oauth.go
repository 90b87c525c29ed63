package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sbilibin2017/linkbio-auth/internal/logger"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
	"github.com/sbilibin2017/linkbio-auth/internal/oauth"
)

//go:generate mockgen -source=oauth.go -destination=mock_oauth.go -package=handlers

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 600
)

// ProviderRegistry resolves identity providers by name.
type ProviderRegistry interface {
	Get(name string) (oauth.IdentityProvider, error)
}

// ExternalUpserter defines the interface that the service must implement.
type ExternalUpserter interface {
	UpsertExternalIdentity(ctx context.Context, provider, providerUserID, displayName, email string) (*models.PublicUser, *models.Session, error)
}

// NewOAuthLoginHandler redirects to the provider's consent page.
// @Summary Start social login
// @Tags oauth
// @Param provider path string true "facebook, twitter, instagram, apple or google"
// @Success 302 "Redirect to the provider"
// @Failure 404 {object} models.ErrorResponse "Unknown provider"
// @Router /oauth/{provider}/login [get]
func NewOAuthLoginHandler(providers ProviderRegistry, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, err := providers.Get(chi.URLParam(r, "provider"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		state, err := oauth.NewState()
		if err != nil {
			writeError(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/oauth",
			MaxAge:   stateCookieTTL,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
	}
}

// NewOAuthCallbackHandler completes social login and signs the user in.
// @Summary Finish social login
// @Tags oauth
// @Produce json
// @Param provider path string true "Provider name"
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by the login redirect"
// @Success 200 {object} models.UserResponse "Signed in, session cookie set"
// @Failure 400 {object} models.ErrorResponse "Invalid state or code"
// @Failure 401 {object} models.ErrorResponse "Consent denied"
// @Failure 409 {object} models.ErrorResponse "Email owned by another account"
// @Failure 502 {object} models.ErrorResponse "Identity provider error"
// @Router /oauth/{provider}/callback [get]
func NewOAuthCallbackHandler(providers ProviderRegistry, svc ExternalUpserter, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, err := providers.Get(chi.URLParam(r, "provider"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		query := r.URL.Query()
		state, err := r.Cookie(stateCookieName)
		if err != nil || state.Value == "" ||
			subtle.ConstantTimeCompare([]byte(state.Value), []byte(query.Get("state"))) != 1 {
			writeErrorMessage(w, http.StatusBadRequest, "invalid oauth state")
			return
		}
		http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/oauth", MaxAge: -1})

		if reason := query.Get("error"); reason != "" {
			logger.Log.Infow("oauth consent denied", "provider", provider.Name(), "reason", reason)
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := provider.Exchange(r.Context(), query.Get("code"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		user, session, err := svc.UpsertExternalIdentity(r.Context(), string(id.Provider), id.ProviderUserID, id.DisplayName, id.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}

		cookie.Set(w, session)
		writeJSON(w, http.StatusOK, models.UserResponse{User: user})
	}
}
