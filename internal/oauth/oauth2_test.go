package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIDP fakes a provider token endpoint and userinfo endpoint.
func newIDP(t *testing.T, userInfo string, userInfoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(userInfoStatus)
		_, _ = w.Write([]byte(userInfo))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOAuth2Provider(t *testing.T, srv *httptest.Server, p identity.Provider) *OAuth2Provider {
	t.Helper()
	c := Preset(p)
	c.ClientID = "client-id"
	c.ClientSecret = "client-secret"
	c.RedirectURL = "https://linkbio.example/oauth/" + string(p) + "/callback"
	c.AuthURL = srv.URL + "/auth"
	c.TokenURL = srv.URL + "/token"
	c.UserInfoURL = srv.URL + "/me"
	require.NoError(t, c.Validate())

	provider, err := NewOAuth2Provider(c)
	require.NoError(t, err)
	return provider
}

func TestOAuth2Provider_AuthCodeURL(t *testing.T) {
	srv := newIDP(t, `{}`, http.StatusOK)
	p := newTestOAuth2Provider(t, srv, identity.Facebook)

	assert.Equal(t, identity.Facebook, p.Name())

	u, err := url.Parse(p.AuthCodeURL("state-xyz"))
	require.NoError(t, err)
	assert.Equal(t, "/auth", u.Path)
	assert.Equal(t, "state-xyz", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "https://linkbio.example/oauth/facebook/callback", u.Query().Get("redirect_uri"))
}

func TestOAuth2Provider_Exchange(t *testing.T) {
	tests := []struct {
		name     string
		provider identity.Provider
		userInfo string
		status   int
		code     string
		want     *Identity
		wantErr  error
	}{
		{
			name:     "facebook profile",
			provider: identity.Facebook,
			userInfo: `{"id":"123456","name":"Jane Doe","email":"jane@example.com"}`,
			status:   http.StatusOK,
			code:     "good-code",
			want: &Identity{
				Provider:       identity.Facebook,
				ProviderUserID: "123456",
				DisplayName:    "Jane Doe",
				Email:          "jane@example.com",
			},
		},
		{
			name:     "twitter nested profile",
			provider: identity.Twitter,
			userInfo: `{"data":{"id":"2244994945","name":"Dev","username":"dev"}}`,
			status:   http.StatusOK,
			code:     "good-code",
			want: &Identity{
				Provider:       identity.Twitter,
				ProviderUserID: "2244994945",
				DisplayName:    "Dev",
			},
		},
		{
			name:     "numeric id",
			provider: identity.Instagram,
			userInfo: `{"id":17841405793187218,"username":"jane"}`,
			status:   http.StatusOK,
			code:     "good-code",
			want: &Identity{
				Provider:       identity.Instagram,
				ProviderUserID: "17841405793187218",
				DisplayName:    "jane",
			},
		},
		{
			name:     "missing code",
			provider: identity.Facebook,
			status:   http.StatusOK,
			wantErr:  common.ErrInvalidInput,
		},
		{
			name:     "rejected code",
			provider: identity.Facebook,
			status:   http.StatusOK,
			code:     "bad-code",
			wantErr:  ErrExchange,
		},
		{
			name:     "userinfo failure",
			provider: identity.Facebook,
			userInfo: `{"error":"boom"}`,
			status:   http.StatusInternalServerError,
			code:     "good-code",
			wantErr:  ErrExchange,
		},
		{
			name:     "userinfo without id",
			provider: identity.Facebook,
			userInfo: `{"name":"Jane"}`,
			status:   http.StatusOK,
			code:     "good-code",
			wantErr:  ErrExchange,
		},
		{
			name:     "malformed userinfo",
			provider: identity.Facebook,
			userInfo: `not json`,
			status:   http.StatusOK,
			code:     "good-code",
			wantErr:  ErrExchange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newIDP(t, tt.userInfo, tt.status)
			p := newTestOAuth2Provider(t, srv, tt.provider)

			got, err := p.Exchange(context.Background(), tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewOAuth2Provider_RequiresUserInfo(t *testing.T) {
	_, err := NewOAuth2Provider(Config{Provider: identity.Facebook})
	assert.ErrorContains(t, err, "userinfo_url is required")
}

func TestNew_OAuth2(t *testing.T) {
	p, err := New(context.Background(), Config{
		Provider:     identity.Facebook,
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "https://linkbio.example/oauth/facebook/callback",
	})
	require.NoError(t, err)

	_, ok := p.(*OAuth2Provider)
	assert.True(t, ok)
	assert.Contains(t, p.AuthCodeURL("s"), "facebook.com")
}
