package jwt

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "linkbio-auth"

var (
	ErrNoToken            = errors.New("session token missing")
	ErrInvalidAuthHeader  = errors.New("invalid authorization header format")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
)

// Claims are the claims carried by a session token.
// SessionID points at the server-side session record.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID string    `json:"sid"`
	jwt.RegisteredClaims
}

// JWT signs and parses session tokens.
type JWT struct {
	secretKey  []byte
	exp        time.Duration
	cookieName string
	now        func() time.Time
}

// Option configures a JWT.
type Option func(*JWT)

func WithSecretKey(secret string) Option {
	return func(j *JWT) { j.secretKey = []byte(secret) }
}

func WithExpiration(exp time.Duration) Option {
	return func(j *JWT) { j.exp = exp }
}

// WithCookieName sets the cookie GetTokenFromRequest reads first.
func WithCookieName(name string) Option {
	return func(j *JWT) { j.cookieName = name }
}

// New creates a new JWT instance
func New(opts ...Option) *JWT {
	j := &JWT{
		exp:        24 * time.Hour,
		cookieName: "session",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Expiration returns the token lifetime.
func (j *JWT) Expiration() time.Duration {
	return j.exp
}

// Generate creates a signed token for a user's session and returns it with its expiry.
func (j *JWT) Generate(ctx context.Context, userID uuid.UUID, sessionID string) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.exp)

	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GetClaims parses and validates the token and returns its claims.
func (j *JWT) GetClaims(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == uuid.Nil || claims.SessionID == "" {
		return nil, ErrInvalidTokenClaims
	}
	return claims, nil
}

// GetTokenFromRequest extracts the token from the session cookie, falling back
// to the Authorization bearer header.
func (j *JWT) GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error) {
	if c, err := r.Cookie(j.cookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoToken
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidAuthHeader
	}

	return parts[1], nil
}
