package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/migrations"
	"github.com/sbilibin2017/linkbio-auth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupUserPostgresContainer(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:password@%s:%d/testdb?sslmode=disable", host, port.Int())

	var db *sqlx.DB
	for i := 0; i < 10; i++ {
		db, err = sqlx.Connect("pgx", dsn)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.Up(ctx, db.DB))
	return db
}

func TestUserRepository_Postgres(t *testing.T) {
	db := setupUserPostgresContainer(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, models.NewUser{
		Username:     " Alice ",
		Email:        strPtr("Alice@Example.com"),
		PasswordHash: "$2a$04$hash",
		Name:         "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "alice@example.com", *created.Email)

	t.Run("normalized lookups", func(t *testing.T) {
		u, err := repo.FindByUsername(ctx, "ALICE ")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, created.ID, u.ID)

		u, err = repo.FindByEmail(ctx, "  ALICE@example.COM")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, created.ID, u.ID)
	})

	t.Run("null emails do not collide", func(t *testing.T) {
		_, err := repo.Create(ctx, models.NewUser{Username: "noemail1", PasswordHash: "h"})
		require.NoError(t, err)
		_, err = repo.Create(ctx, models.NewUser{Username: "noemail2", PasswordHash: "h"})
		require.NoError(t, err)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.Create(ctx, models.NewUser{Username: "alice", PasswordHash: "h"})
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("concurrent create hits the unique index", func(t *testing.T) {
		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Create(ctx, models.NewUser{Username: "racer", PasswordHash: "h"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			var ce *common.ConflictError
			require.True(t, errors.As(err, &ce), "unexpected error: %v", err)
			assert.Equal(t, common.FieldUsername, ce.Field)
		}
		assert.Equal(t, 1, ok)
	})
}
