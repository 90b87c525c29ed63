package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
)

// OIDCProvider runs the code flow and trusts only the verified id_token.
type OIDCProvider struct {
	name         identity.Provider
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	attrs        AttributeMap
}

// NewOIDCProvider discovers the issuer and builds an id_token verifier.
func NewOIDCProvider(ctx context.Context, c Config) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, c.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover %s issuer: %w", c.Provider, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: c.ClientID})
	return newOIDCProvider(c, provider.Endpoint(), verifier), nil
}

func newOIDCProvider(c Config, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *OIDCProvider {
	if c.Attributes.UserID == "" {
		c.Attributes.UserID = "sub"
	}
	return &OIDCProvider{
		name:         c.Provider,
		oauth2Config: c.oauth2Config(endpoint),
		verifier:     verifier,
		attrs:        c.Attributes,
	}
}

func (p *OIDCProvider) Name() identity.Provider {
	return p.name
}

func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// Exchange trades code for tokens and maps the verified id_token claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", common.ErrInvalidInput)
	}

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		logger.Log.Warnw("oidc code exchange failed", "provider", p.name, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: missing id_token in %s response", ErrExchange, p.name)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Log.Warnw("id_token verification failed", "provider", p.name, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to parse claims: %v", ErrExchange, err)
	}
	if _, ok := claims[p.attrs.UserID]; !ok && idToken.Subject != "" {
		claims[p.attrs.UserID] = idToken.Subject
	}

	return mapIdentity(p.name, p.attrs, claims)
}
