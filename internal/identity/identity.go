package identity

import (
	"fmt"
	"strings"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
)

// Provider names an external identity provider.
type Provider string

const (
	Facebook  Provider = "facebook"
	Twitter   Provider = "twitter"
	Instagram Provider = "instagram"
	Apple     Provider = "apple"
	Google    Provider = "google"
)

// prefixes is the single source of truth for derived usernames.
var prefixes = map[Provider]string{
	Facebook:  "fb",
	Twitter:   "tw",
	Instagram: "ig",
	Apple:     "ap",
	Google:    "gg",
}

// aliases maps alternative spellings onto a canonical provider.
var aliases = map[string]Provider{
	"x":  Twitter,
	"fb": Facebook,
	"ig": Instagram,
}

// Normalize trims surrounding whitespace and lowercases an identity string.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseProvider resolves a provider name (case and whitespace insensitive).
func ParseProvider(name string) (Provider, error) {
	n := Normalize(name)
	if p, ok := aliases[n]; ok {
		return p, nil
	}
	p := Provider(n)
	if _, ok := prefixes[p]; !ok {
		return "", fmt.Errorf("%w: unknown provider %q", common.ErrInvalidInput, name)
	}
	return p, nil
}

// Prefix returns the short username tag of a provider.
func (p Provider) Prefix() string {
	return prefixes[p]
}

// Providers returns all known providers.
func Providers() []Provider {
	return []Provider{Facebook, Twitter, Instagram, Apple, Google}
}

// IsReserved reports whether username has the {prefix}_ form of a derived
// username. Such names belong to external identities and cannot be registered.
func IsReserved(username string) bool {
	n := Normalize(username)
	for _, prefix := range prefixes {
		if strings.HasPrefix(n, prefix+"_") {
			return true
		}
	}
	return false
}

// DeriveUsername builds the canonical local username {prefix}_{providerUserID}
// for an external identity, normalized like any other username.
func DeriveUsername(provider, providerUserID string) (string, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(providerUserID)
	if id == "" {
		return "", fmt.Errorf("%w: empty provider user id", common.ErrInvalidInput)
	}
	return Normalize(p.Prefix() + "_" + id), nil
}
