package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/instagram"

	"github.com/sbilibin2017/linkbio-auth/internal/identity"
)

// AttributeMap names the userinfo or id_token fields holding each identity
// attribute. Dotted keys walk nested objects.
type AttributeMap struct {
	UserID string
	Name   string
	Email  string
}

// Config describes one provider. Empty fields are filled from Preset.
type Config struct {
	Provider     identity.Provider
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	IssuerURL    string
	RedirectURL  string
	Scopes       []string
	Attributes   AttributeMap
}

// OIDC reports whether the provider signs users in with a verified id_token.
func (c Config) OIDC() bool {
	return c.IssuerURL != ""
}

// Validate checks the fields required by the code flow.
func (c Config) Validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("%s: client_id is required", c.Provider)
	case c.ClientSecret == "":
		return fmt.Errorf("%s: client_secret is required", c.Provider)
	case c.RedirectURL == "":
		return fmt.Errorf("%s: redirect_url is required", c.Provider)
	case len(c.Scopes) == 0:
		return fmt.Errorf("%s: scopes are required", c.Provider)
	}
	if c.OIDC() {
		for _, s := range c.Scopes {
			if s == "openid" {
				return nil
			}
		}
		return fmt.Errorf("%s: 'openid' scope is required", c.Provider)
	}
	switch {
	case c.AuthURL == "":
		return fmt.Errorf("%s: auth_url is required", c.Provider)
	case c.TokenURL == "":
		return fmt.Errorf("%s: token_url is required", c.Provider)
	case c.UserInfoURL == "":
		return fmt.Errorf("%s: userinfo_url is required", c.Provider)
	case c.Attributes.UserID == "":
		return fmt.Errorf("%s: user id attribute is required", c.Provider)
	}
	return nil
}

// Preset returns the well-known endpoints and attribute mapping of a provider.
func Preset(p identity.Provider) Config {
	switch p {
	case identity.Facebook:
		return Config{
			Provider:    p,
			AuthURL:     facebook.Endpoint.AuthURL,
			TokenURL:    facebook.Endpoint.TokenURL,
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
			Scopes:      []string{"public_profile", "email"},
			Attributes:  AttributeMap{UserID: "id", Name: "name", Email: "email"},
		}
	case identity.Instagram:
		return Config{
			Provider:    p,
			AuthURL:     instagram.Endpoint.AuthURL,
			TokenURL:    instagram.Endpoint.TokenURL,
			UserInfoURL: "https://graph.instagram.com/me?fields=id,username",
			Scopes:      []string{"user_profile"},
			Attributes:  AttributeMap{UserID: "id", Name: "username"},
		}
	case identity.Twitter:
		return Config{
			Provider:    p,
			AuthURL:     "https://twitter.com/i/oauth2/authorize",
			TokenURL:    "https://api.twitter.com/2/oauth2/token",
			UserInfoURL: "https://api.twitter.com/2/users/me",
			Scopes:      []string{"users.read", "tweet.read"},
			Attributes:  AttributeMap{UserID: "data.id", Name: "data.name"},
		}
	case identity.Google:
		return Config{
			Provider:   p,
			IssuerURL:  "https://accounts.google.com",
			Scopes:     []string{"openid", "profile", "email"},
			Attributes: AttributeMap{UserID: "sub", Name: "name", Email: "email"},
		}
	case identity.Apple:
		return Config{
			Provider:   p,
			IssuerURL:  "https://appleid.apple.com",
			Scopes:     []string{"openid", "name", "email"},
			Attributes: AttributeMap{UserID: "sub", Name: "name", Email: "email"},
		}
	}
	return Config{Provider: p}
}

// WithDefaults fills the empty fields of c from its provider preset.
func (c Config) WithDefaults() Config {
	preset := Preset(c.Provider)
	if c.IssuerURL == "" && c.AuthURL == "" {
		c.IssuerURL = preset.IssuerURL
	}
	if c.AuthURL == "" {
		c.AuthURL = preset.AuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = preset.TokenURL
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = preset.UserInfoURL
	}
	if len(c.Scopes) == 0 {
		c.Scopes = preset.Scopes
	}
	if c.Attributes == (AttributeMap{}) {
		c.Attributes = preset.Attributes
	}
	return c
}

// New builds an OIDC or plain OAuth2 provider from c.
func New(ctx context.Context, c Config) (IdentityProvider, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.OIDC() {
		return NewOIDCProvider(ctx, c)
	}
	return NewOAuth2Provider(c)
}

func (c Config) oauth2Config(endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
	}
}

// mapIdentity extracts the mapped attributes from a decoded payload.
func mapIdentity(p identity.Provider, attrs AttributeMap, data map[string]any) (*Identity, error) {
	id := &Identity{
		Provider:       p,
		ProviderUserID: stringValue(data, attrs.UserID),
		DisplayName:    stringValue(data, attrs.Name),
		Email:          stringValue(data, attrs.Email),
	}
	if id.ProviderUserID == "" {
		return nil, fmt.Errorf("%w: missing %q in %s response", ErrExchange, attrs.UserID, p)
	}
	return id, nil
}

func stringValue(data map[string]any, key string) string {
	if key == "" {
		return ""
	}
	var cur any = data
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[part]
	}
	switch v := cur.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
