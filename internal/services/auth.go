package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/events"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/sbilibin2017/linkbio-auth/internal/jwt"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
	"github.com/sbilibin2017/linkbio-auth/internal/password"
)

//go:generate mockgen -source=auth.go -destination=mock_auth.go -package=services

// CredentialStore is the source of truth for identity lookup and uniqueness.
// Find* normalize their argument and return (nil, nil) when nothing matches.
// Create fails with a *common.ConflictError when a unique key is taken.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, candidate models.NewUser) (*models.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, hash, password string) error
	VerifyDummy(ctx context.Context, password string)
}

// SessionStore keeps server-side session records.
type SessionStore interface {
	Save(ctx context.Context, sessionID string, record models.SessionRecord, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	Delete(ctx context.Context, sessionID string) error
}

// Tokener signs and parses session tokens.
type Tokener interface {
	Generate(ctx context.Context, userID uuid.UUID, sessionID string) (string, time.Time, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
	Expiration() time.Duration
}

// EventPublisher publishes account events. Implementations must not block on failure.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, userID uuid.UUID, username, provider string)
}

// Recorder counts auth operation outcomes.
type Recorder interface {
	RecordAuth(operation, result string)
}

// AuthService handles registration, login, logout, session restore and
// external identity upserts.
type AuthService struct {
	store    CredentialStore
	hasher   PasswordHasher
	sessions SessionStore
	tokens   Tokener
	events   EventPublisher
	recorder Recorder
	now      func() time.Time
}

// Option configures optional AuthService collaborators.
type Option func(*AuthService)

func WithEvents(p EventPublisher) Option {
	return func(s *AuthService) { s.events = p }
}

func WithRecorder(r Recorder) Option {
	return func(s *AuthService) { s.recorder = r }
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(store CredentialStore, hasher PasswordHasher, sessions SessionStore, tokens Tokener, opts ...Option) *AuthService {
	svc := &AuthService{
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		tokens:   tokens,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Register creates a local account and signs it in.
// email may be empty.
func (svc *AuthService) Register(ctx context.Context, username, pass, name, email string) (user *models.PublicUser, session *models.Session, err error) {
	defer func() { svc.record("register", err) }()

	normUsername := identity.Normalize(username)
	normEmail := identity.Normalize(email)
	if err := validateRegistration(normUsername, pass, normEmail); err != nil {
		return nil, nil, err
	}

	// Fast path only: the store's unique constraint decides races.
	existing, err := svc.store.FindByUsername(ctx, normUsername)
	if err != nil {
		logger.Log.Errorw("failed to check username", "username", normUsername, "err", err)
		return nil, nil, err
	}
	if existing != nil {
		logger.Log.Infow("username already taken", "username", normUsername)
		return nil, nil, common.ErrUsernameTaken
	}
	if normEmail != "" {
		existing, err = svc.store.FindByEmail(ctx, normEmail)
		if err != nil {
			logger.Log.Errorw("failed to check email", "username", normUsername, "err", err)
			return nil, nil, err
		}
		if existing != nil {
			logger.Log.Infow("email already taken", "username", normUsername)
			return nil, nil, common.ErrEmailTaken
		}
	}

	hash, err := svc.hasher.Hash(ctx, pass)
	if err != nil {
		logger.Log.Errorw("failed to hash password", "username", normUsername, "err", err)
		return nil, nil, err
	}

	if strings.TrimSpace(name) == "" {
		name = normUsername
	}
	created, err := svc.store.Create(ctx, models.NewUser{
		Username:     normUsername,
		Email:        optional(normEmail),
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
	})
	if err != nil {
		err = takenError(err)
		if errors.Is(err, common.ErrUsernameTaken) || errors.Is(err, common.ErrEmailTaken) || errors.Is(err, common.ErrConflict) {
			logger.Log.Infow("registration lost a uniqueness race", "username", normUsername, "err", err)
		} else {
			logger.Log.Errorw("failed to create user", "username", normUsername, "err", err)
		}
		return nil, nil, err
	}

	session, err = svc.establishSession(ctx, created)
	if err != nil {
		return nil, nil, err
	}

	svc.publish(ctx, events.UserRegistered, created.ID, created.Username, "")
	logger.Log.Infow("user registered", "user_id", created.ID, "username", created.Username)
	return created.Public(), session, nil
}

// Login authenticates by username or email. Unknown accounts and wrong
// passwords both yield common.ErrInvalidCredentials.
func (svc *AuthService) Login(ctx context.Context, identifier, pass string) (user *models.PublicUser, session *models.Session, err error) {
	defer func() { svc.record("login", err) }()

	id := identity.Normalize(identifier)
	if id == "" || pass == "" {
		return nil, nil, fmt.Errorf("%w: identifier and password are required", common.ErrInvalidInput)
	}

	found, err := svc.store.FindByUsername(ctx, id)
	if err != nil {
		logger.Log.Errorw("failed to get user", "err", err)
		return nil, nil, err
	}
	if found == nil && strings.Contains(id, "@") {
		found, err = svc.store.FindByEmail(ctx, id)
		if err != nil {
			logger.Log.Errorw("failed to get user by email", "err", err)
			return nil, nil, err
		}
	}

	if found == nil {
		svc.hasher.VerifyDummy(ctx, pass)
		logger.Log.Infow("login failed: unknown identifier")
		return nil, nil, common.ErrInvalidCredentials
	}

	if err := svc.hasher.Verify(ctx, found.PasswordHash, pass); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			logger.Log.Infow("login failed: password mismatch", "user_id", found.ID)
			return nil, nil, common.ErrInvalidCredentials
		}
		logger.Log.Errorw("failed to verify password", "user_id", found.ID, "err", err)
		return nil, nil, err
	}

	session, err = svc.establishSession(ctx, found)
	if err != nil {
		return nil, nil, err
	}

	svc.publish(ctx, events.UserLoggedIn, found.ID, found.Username, "")
	return found.Public(), session, nil
}

// Logout invalidates the session behind token. Unknown, expired or already
// invalidated tokens are not an error.
func (svc *AuthService) Logout(ctx context.Context, token string) (err error) {
	defer func() { svc.record("logout", err) }()

	if token == "" {
		return nil
	}
	claims, err := svc.tokens.GetClaims(ctx, token)
	if err != nil {
		logger.Log.Debugw("logout with unusable token", "token", logger.Fingerprint(token), "err", err)
		return nil
	}

	if err := svc.sessions.Delete(ctx, claims.SessionID); err != nil {
		logger.Log.Errorw("failed to delete session", "user_id", claims.UserID, "err", err)
		return err
	}

	svc.publish(ctx, events.UserLoggedOut, claims.UserID, "", "")
	return nil
}

// CurrentUser resolves the user behind a session token. Any invalid, expired
// or revoked session yields common.ErrUnauthorized.
func (svc *AuthService) CurrentUser(ctx context.Context, token string) (*models.PublicUser, error) {
	if token == "" {
		return nil, common.ErrUnauthorized
	}

	claims, err := svc.tokens.GetClaims(ctx, token)
	if err != nil {
		logger.Log.Debugw("invalid session token", "token", logger.Fingerprint(token), "err", err)
		return nil, common.ErrUnauthorized
	}

	record, err := svc.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrUnauthorized
	}
	if err != nil {
		logger.Log.Errorw("failed to get session", "user_id", claims.UserID, "err", err)
		return nil, err
	}
	if record.UserID != claims.UserID {
		logger.Log.Warnw("session record does not match token", "user_id", claims.UserID)
		return nil, common.ErrUnauthorized
	}

	user, err := svc.store.FindByUsername(ctx, record.Username)
	if err != nil {
		logger.Log.Errorw("failed to load session user", "user_id", claims.UserID, "err", err)
		return nil, err
	}
	if user == nil || user.ID != record.UserID {
		return nil, common.ErrUnauthorized
	}
	return user.Public(), nil
}

// UpsertExternalIdentity returns the local account linked to a provider
// identity, creating it on first sight, and signs it in.
// The account is keyed by the derived username {prefix}_{providerUserID}.
func (svc *AuthService) UpsertExternalIdentity(ctx context.Context, provider, providerUserID, displayName, email string) (user *models.PublicUser, session *models.Session, err error) {
	defer func() { svc.record("upsert_external", err) }()

	username, err := identity.DeriveUsername(provider, providerUserID)
	if err != nil {
		return nil, nil, err
	}
	p, _ := identity.ParseProvider(provider)

	found, err := svc.store.FindByUsername(ctx, username)
	if err != nil {
		logger.Log.Errorw("failed to get external user", "username", username, "err", err)
		return nil, nil, err
	}

	eventType := events.UserLoggedIn
	if found == nil {
		found, err = svc.createExternal(ctx, username, displayName, email)
		if err != nil {
			return nil, nil, err
		}
		eventType = events.UserExternalLinked
	}

	session, err = svc.establishSession(ctx, found)
	if err != nil {
		return nil, nil, err
	}

	svc.publish(ctx, eventType, found.ID, found.Username, string(p))
	return found.Public(), session, nil
}

func (svc *AuthService) createExternal(ctx context.Context, username, displayName, email string) (*models.User, error) {
	secret, err := randomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := svc.hasher.Hash(ctx, secret)
	if err != nil {
		logger.Log.Errorw("failed to hash external password", "username", username, "err", err)
		return nil, err
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = username
	}
	normEmail := identity.Normalize(email)
	if normEmail != "" && !validEmail(normEmail) {
		normEmail = ""
	}

	created, err := svc.store.Create(ctx, models.NewUser{
		Username:     username,
		Email:        optional(normEmail),
		PasswordHash: hash,
		Name:         name,
	})
	if err == nil {
		logger.Log.Infow("external user created", "user_id", created.ID, "username", username)
		return created, nil
	}

	var ce *common.ConflictError
	if !errors.As(err, &ce) {
		logger.Log.Errorw("failed to create external user", "username", username, "err", err)
		return nil, err
	}
	if ce.Field == common.FieldEmail {
		return nil, common.ErrEmailTaken
	}

	// A concurrent first login of the same identity won the insert.
	existing, ferr := svc.store.FindByUsername(ctx, username)
	if ferr != nil {
		return nil, ferr
	}
	if existing == nil {
		logger.Log.Warnw("external user conflict without a visible row", "username", username)
		return nil, common.ErrConflict
	}
	return existing, nil
}

// establishSession saves a server-side session record and signs a token pointing at it.
func (svc *AuthService) establishSession(ctx context.Context, user *models.User) (*models.Session, error) {
	sessionID := uuid.NewString()
	record := models.SessionRecord{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: svc.now().UTC(),
	}

	if err := svc.sessions.Save(ctx, sessionID, record, svc.tokens.Expiration()); err != nil {
		logger.Log.Errorw("failed to save session", "user_id", user.ID, "err", err)
		return nil, err
	}

	token, expiresAt, err := svc.tokens.Generate(ctx, user.ID, sessionID)
	if err != nil {
		logger.Log.Errorw("failed to generate session token", "user_id", user.ID, "err", err)
		_ = svc.sessions.Delete(ctx, sessionID)
		return nil, err
	}

	return &models.Session{Token: token, UserID: user.ID, ExpiresAt: expiresAt}, nil
}

func (svc *AuthService) publish(ctx context.Context, eventType string, userID uuid.UUID, username, provider string) {
	if svc.events == nil {
		return
	}
	svc.events.Publish(ctx, eventType, userID, username, provider)
}

func (svc *AuthService) record(operation string, err error) {
	if svc.recorder == nil {
		return
	}
	svc.recorder.RecordAuth(operation, Result(err))
}

// Result classifies an auth error into a short metric label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, common.ErrUsernameTaken), errors.Is(err, common.ErrEmailTaken), errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, common.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, common.ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}

// takenError maps a store conflict onto the caller-facing uniqueness errors.
func takenError(err error) error {
	var ce *common.ConflictError
	if !errors.As(err, &ce) {
		return err
	}
	switch ce.Field {
	case common.FieldUsername:
		return common.ErrUsernameTaken
	case common.FieldEmail:
		return common.ErrEmailTaken
	default:
		return err
	}
}

func validateRegistration(username, pass, email string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", common.ErrInvalidInput)
	case pass == "":
		return fmt.Errorf("%w: password is required", common.ErrInvalidInput)
	case strings.ContainsAny(username, "@ \t\r\n"):
		return fmt.Errorf("%w: username must not contain '@' or whitespace", common.ErrInvalidInput)
	case identity.IsReserved(username):
		return fmt.Errorf("%w: username is reserved for social sign-in", common.ErrInvalidInput)
	case email != "" && !validEmail(email):
		return fmt.Errorf("%w: malformed email", common.ErrInvalidInput)
	}
	return nil
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n") && strings.Count(email, "@") == 1
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// randomPassword seeds OAuth-only accounts. It is hashed and then discarded.
func randomPassword() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
