package oauth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://accounts.example.com"

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims gojwt.MapClaims) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

// newTokenEndpoint answers every code exchange with idToken.
func newTokenEndpoint(t *testing.T, idToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if idToken != "" {
			body["id_token"] = idToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOIDCProvider(t *testing.T, srv *httptest.Server, key *rsa.PrivateKey) *OIDCProvider {
	t.Helper()
	verifier := oidc.NewVerifier(testIssuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}},
		&oidc.Config{ClientID: "client-id"},
	)
	c := Preset(identity.Google)
	c.ClientID = "client-id"
	c.ClientSecret = "client-secret"
	c.RedirectURL = "https://linkbio.example/oauth/google/callback"
	return newOIDCProvider(c, oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}, verifier)
}

func TestOIDCProvider_Exchange(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	claims := func(overrides gojwt.MapClaims) gojwt.MapClaims {
		c := gojwt.MapClaims{
			"iss":   testIssuer,
			"aud":   "client-id",
			"sub":   "110169484474386276334",
			"name":  "Jane Doe",
			"email": "jane@example.com",
			"iat":   time.Now().Unix(),
			"exp":   time.Now().Add(time.Hour).Unix(),
		}
		for k, v := range overrides {
			c[k] = v
		}
		return c
	}

	tests := []struct {
		name    string
		idToken string
		want    *Identity
		wantErr error
	}{
		{
			name:    "verified id_token",
			idToken: signIDToken(t, key, claims(nil)),
			want: &Identity{
				Provider:       identity.Google,
				ProviderUserID: "110169484474386276334",
				DisplayName:    "Jane Doe",
				Email:          "jane@example.com",
			},
		},
		{
			name:    "missing id_token",
			wantErr: ErrExchange,
		},
		{
			name:    "foreign signature",
			idToken: signIDToken(t, otherKey, claims(nil)),
			wantErr: ErrExchange,
		},
		{
			name:    "wrong audience",
			idToken: signIDToken(t, key, claims(gojwt.MapClaims{"aud": "someone-else"})),
			wantErr: ErrExchange,
		},
		{
			name:    "expired",
			idToken: signIDToken(t, key, claims(gojwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})),
			wantErr: ErrExchange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenEndpoint(t, tt.idToken)
			p := newTestOIDCProvider(t, srv, key)

			got, err := p.Exchange(context.Background(), "good-code")
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

func TestOIDCProvider_MissingCode(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := newTestOIDCProvider(t, newTokenEndpoint(t, ""), key)

	_, err = p.Exchange(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewOIDCProvider_Discovery(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                srv.URL,
			"authorization_endpoint":                srv.URL + "/auth",
			"token_endpoint":                        srv.URL + "/token",
			"jwks_uri":                              srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	}))
	defer srv.Close()

	p, err := New(context.Background(), Config{
		Provider:     identity.Google,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		IssuerURL:    srv.URL,
		RedirectURL:  "https://linkbio.example/oauth/google/callback",
	})
	require.NoError(t, err)

	oidcProvider, ok := p.(*OIDCProvider)
	require.True(t, ok)
	assert.Equal(t, identity.Google, oidcProvider.Name())
	assert.True(t, strings.HasPrefix(p.AuthCodeURL("st"), srv.URL+"/auth?"))
}

func TestNewOIDCProvider_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewOIDCProvider(context.Background(), Config{Provider: identity.Apple, IssuerURL: srv.URL})
	assert.ErrorContains(t, err, "failed to discover apple issuer")
}
