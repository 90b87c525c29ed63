package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

const (
	pgUniqueViolation = "23505"

	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

const userColumns = `id, username, email, password_hash, name, bio, profile_image, created_at, updated_at`

// UserRepository is the Postgres credential store.
// Uniqueness is enforced by unique indexes on the normalized username and email.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns the user with the normalized username, or nil if there is none.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.findOne(ctx, "find user by username", query, identity.Normalize(username))
}

// FindByEmail returns the user with the normalized email, or nil if there is none.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.findOne(ctx, "find user by email", query, identity.Normalize(email))
}

func (r *UserRepository) findOne(ctx context.Context, op, query, key string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, query, key)

	logger.Log.Debugw("user query",
		"query", oneLine(query),
		"args", []any{key},
		"error", err,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Unavailable(op, err)
	}
	return &user, nil
}

// Create inserts a new user. The lookups before the insert only short-circuit the
// common case; a unique violation raised by the insert itself is the authoritative
// conflict signal.
func (r *UserRepository) Create(ctx context.Context, candidate models.NewUser) (*models.User, error) {
	username := identity.Normalize(candidate.Username)
	if username == "" {
		return nil, common.ErrInvalidInput
	}
	email := normalizeEmail(candidate.Email)

	existing, err := r.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &common.ConflictError{Field: common.FieldUsername}
	}
	if email != nil {
		existing, err = r.FindByEmail(ctx, *email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &common.ConflictError{Field: common.FieldEmail}
		}
	}

	const query = `
		INSERT INTO users (id, username, email, password_hash, name, bio, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', '', NOW(), NOW())
		RETURNING ` + userColumns

	id := uuid.New()
	var user models.User
	err = r.db.GetContext(ctx, &user, query, id, username, email, candidate.PasswordHash, candidate.Name)

	// the password hash is left out of the log on purpose
	logger.Log.Infow("user insert",
		"query", oneLine(query),
		"args", []any{id, username, email, candidate.Name},
		"error", err,
	)

	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return nil, &common.ConflictError{Field: field}
		}
		return nil, common.Unavailable("create user", err)
	}
	return &user, nil
}

// uniqueViolation reports whether err is a Postgres unique violation and which column it hit.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return "", false
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return common.FieldUsername, true
	case emailConstraint:
		return common.FieldEmail, true
	default:
		return "", true
	}
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	n := identity.Normalize(*email)
	if n == "" {
		return nil
	}
	return &n
}

// oneLine collapses a query so it fits on a single log line.
func oneLine(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
