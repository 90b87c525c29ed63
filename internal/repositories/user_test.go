package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectByUsername = `(?s)^SELECT\s+id,\s*username,.*FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	selectByEmail    = `(?s)^SELECT\s+id,\s*username,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	insertUser       = `(?s)INSERT\s+INTO\s+users\s*\(id,\s*username,\s*email,\s*password_hash,\s*name.*RETURNING\s+id`
)

var userCols = []string{"id", "username", "email", "password_hash", "name", "bio", "profile_image", "created_at", "updated_at"}

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func userRow(id uuid.UUID, username string, email any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow(id.String(), username, email, "$2a$04$hash", "Jane", "", "", now, now)
}

func TestUserRepository_FindByUsername(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	ctx := context.Background()
	id := uuid.New()

	t.Run("found with normalized key", func(t *testing.T) {
		mock.ExpectQuery(selectByUsername).
			WithArgs("jane").
			WillReturnRows(userRow(id, "jane", "jane@example.com"))

		user, err := repo.FindByUsername(ctx, "  JANE ")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "jane", user.Username)
		require.NotNil(t, user.Email)
		assert.Equal(t, "jane@example.com", *user.Email)
	})

	t.Run("not found is an explicit absence", func(t *testing.T) {
		mock.ExpectQuery(selectByUsername).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.FindByUsername(ctx, "ghost")
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("driver error is storage unavailable", func(t *testing.T) {
		mock.ExpectQuery(selectByUsername).
			WithArgs("jane").
			WillReturnError(sql.ErrConnDone)

		user, err := repo.FindByUsername(ctx, "jane")
		assert.ErrorIs(t, err, common.ErrStorageUnavailable)
		assert.ErrorIs(t, err, sql.ErrConnDone)
		assert.Nil(t, user)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(selectByEmail).
		WithArgs("email@example.com").
		WillReturnRows(userRow(id, "jane", "email@example.com"))

	user, err := repo.FindByEmail(ctx, "  EMAIL@Example.com  ")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)

	mock.ExpectQuery(selectByEmail).
		WithArgs("none@example.com").
		WillReturnError(sql.ErrNoRows)

	user, err = repo.FindByEmail(ctx, "none@example.com")
	assert.NoError(t, err)
	assert.Nil(t, user)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	email := " Jane@Example.COM "
	blank := "   "

	tests := []struct {
		name      string
		candidate models.NewUser
		setup     func(mock sqlmock.Sqlmock)
		wantErr   error
		wantField string
		wantEmail *string
	}{
		{
			name:      "success with email",
			candidate: models.NewUser{Username: " Jane ", Email: &email, PasswordHash: "$2a$04$hash", Name: "Jane"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("jane").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(selectByEmail).WithArgs("jane@example.com").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(insertUser).
					WithArgs(sqlmock.AnyArg(), "jane", "jane@example.com", "$2a$04$hash", "Jane").
					WillReturnRows(userRow(uuid.New(), "jane", "jane@example.com"))
			},
		},
		{
			name:      "success without email",
			candidate: models.NewUser{Username: "bob", PasswordHash: "$2a$04$hash", Name: "Bob"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("bob").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(insertUser).
					WithArgs(sqlmock.AnyArg(), "bob", nil, "$2a$04$hash", "Bob").
					WillReturnRows(userRow(uuid.New(), "bob", nil))
			},
		},
		{
			name:      "blank email is stored as null",
			candidate: models.NewUser{Username: "carol", Email: &blank, PasswordHash: "$2a$04$hash"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("carol").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(insertUser).
					WithArgs(sqlmock.AnyArg(), "carol", nil, "$2a$04$hash", "").
					WillReturnRows(userRow(uuid.New(), "carol", nil))
			},
		},
		{
			name:      "empty username",
			candidate: models.NewUser{Username: "  ", PasswordHash: "$2a$04$hash"},
			setup:     func(mock sqlmock.Sqlmock) {},
			wantErr:   common.ErrInvalidInput,
		},
		{
			name:      "username pre-check conflict",
			candidate: models.NewUser{Username: "User1", PasswordHash: "$2a$04$hash"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("user1").
					WillReturnRows(userRow(uuid.New(), "user1", nil))
			},
			wantErr:   common.ErrConflict,
			wantField: common.FieldUsername,
		},
		{
			name:      "email pre-check conflict",
			candidate: models.NewUser{Username: "jane", Email: &email, PasswordHash: "$2a$04$hash"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("jane").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(selectByEmail).WithArgs("jane@example.com").
					WillReturnRows(userRow(uuid.New(), "other", "jane@example.com"))
			},
			wantErr:   common.ErrConflict,
			wantField: common.FieldEmail,
		},
		{
			name:      "unique violation on username from insert",
			candidate: models.NewUser{Username: "racer", PasswordHash: "$2a$04$hash"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("racer").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(insertUser).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
			},
			wantErr:   common.ErrConflict,
			wantField: common.FieldUsername,
		},
		{
			name:      "unique violation on email from insert",
			candidate: models.NewUser{Username: "racer", Email: &email, PasswordHash: "$2a$04$hash"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("racer").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(selectByEmail).WithArgs("jane@example.com").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(insertUser).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
			},
			wantErr:   common.ErrConflict,
			wantField: common.FieldEmail,
		},
		{
			name:      "other constraint error",
			candidate: models.NewUser{Username: "racer", PasswordHash: "$2a$04$hash"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("racer").WillReturnError(sql.ErrNoRows)
				mock.ExpectQuery(insertUser).
					WillReturnError(&pgconn.PgError{Code: "23514", ConstraintName: "users_username_normalized"})
			},
			wantErr: common.ErrStorageUnavailable,
		},
		{
			name:      "pre-check storage failure",
			candidate: models.NewUser{Username: "dave", PasswordHash: "$2a$04$hash"},
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByUsername).WithArgs("dave").WillReturnError(errors.New("connection refused"))
			},
			wantErr: common.ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newUserRepoWithMock(t)
			tt.setup(mock)

			user, err := repo.Create(ctx, tt.candidate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				if tt.wantField != "" {
					var ce *common.ConflictError
					require.True(t, errors.As(err, &ce))
					assert.Equal(t, tt.wantField, ce.Field)
				}
			} else {
				require.NoError(t, err)
				require.NotNil(t, user)
				assert.NotEqual(t, uuid.Nil, user.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUniqueViolation(t *testing.T) {
	field, ok := uniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "something_else"})
	assert.True(t, ok)
	assert.Empty(t, field)

	_, ok = uniqueViolation(errors.New("plain"))
	assert.False(t, ok)
}
