package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
)

// OAuth2Provider runs the code flow and reads the user from a userinfo endpoint.
type OAuth2Provider struct {
	name         identity.Provider
	oauth2Config *oauth2.Config
	userInfoURL  string
	attrs        AttributeMap
}

// NewOAuth2Provider creates a provider from a validated config.
func NewOAuth2Provider(c Config) (*OAuth2Provider, error) {
	if c.UserInfoURL == "" {
		return nil, fmt.Errorf("%s: userinfo_url is required", c.Provider)
	}
	return &OAuth2Provider{
		name: c.Provider,
		oauth2Config: c.oauth2Config(oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		}),
		userInfoURL: c.UserInfoURL,
		attrs:       c.Attributes,
	}, nil
}

func (p *OAuth2Provider) Name() identity.Provider {
	return p.name
}

func (p *OAuth2Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades code for a token and fetches the user behind it.
func (p *OAuth2Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", common.ErrInvalidInput)
	}

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		logger.Log.Warnw("oauth2 code exchange failed", "provider", p.name, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.oauth2Config.Client(ctx, token).Do(req)
	if err != nil {
		logger.Log.Warnw("userinfo request failed", "provider", p.name, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: userinfo status %d: %s", ErrExchange, resp.StatusCode, body)
	}

	var userInfo map[string]any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("%w: failed to decode userinfo: %v", ErrExchange, err)
	}

	return mapIdentity(p.name, p.attrs, userInfo)
}
