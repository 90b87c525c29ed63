package services_test

import (
	"context"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sbilibin2017/linkbio-auth/internal/common"
	"github.com/sbilibin2017/linkbio-auth/internal/jwt"
	"github.com/sbilibin2017/linkbio-auth/internal/password"
	"github.com/sbilibin2017/linkbio-auth/internal/repositories"
	"github.com/sbilibin2017/linkbio-auth/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryService(t *testing.T) *services.AuthService {
	t.Helper()
	hasher, err := password.New(password.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	return services.NewAuthService(
		repositories.NewMemoryUserRepository(),
		hasher,
		repositories.NewMemorySessionRepository(),
		jwt.New(jwt.WithSecretKey("test-secret")),
	)
}

func TestAuthFlow_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	registered, _, err := svc.Register(ctx, "user1", "pass123", "User One", "")
	require.NoError(t, err)

	user, session, err := svc.Login(ctx, "user1", "pass123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, session.Token)

	_, _, err = svc.Register(ctx, " User1 ", "other", "", "")
	assert.ErrorIs(t, err, common.ErrUsernameTaken)
}

func TestAuthFlow_LoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	_, _, err := svc.Register(ctx, "user1", "pass123", "", "")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, "user1", "nope")
	_, _, unknownUser := svc.Login(ctx, "nobody", "pass123")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.ErrorIs(t, wrongPassword, common.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestAuthFlow_LoginByNormalizedEmail(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	registered, _, err := svc.Register(ctx, "mailer", "pass123", "", "email@example.com")
	require.NoError(t, err)

	user, _, err := svc.Login(ctx, "  EMAIL@Example.com  ", "pass123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, _, err = svc.Register(ctx, "mailer2", "pass123", "", "Email@EXAMPLE.com")
	assert.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestAuthFlow_ConcurrentRegister(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Register(ctx, "racer", "pass123", "", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, common.ErrUsernameTaken):
				taken++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, taken)
}

func TestAuthFlow_UpsertExternalIdentityIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	first, _, err := svc.UpsertExternalIdentity(ctx, "facebook", "123456", "Jane", "")
	require.NoError(t, err)
	second, _, err := svc.UpsertExternalIdentity(ctx, "facebook", "123456", "Jane", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "fb_123456", first.Username)
	assert.Equal(t, "fb_123456", second.Username)
}

func TestAuthFlow_RegisterRejectsDerivedUsernames(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	for _, username := range []string{"FB_123456", "tw_abcde", " ig_987 ", "ap_x", "gg_42"} {
		_, _, err := svc.Register(ctx, username, "secret-pw", "", "")
		assert.ErrorIs(t, err, common.ErrInvalidInput, username)
	}
}

func TestAuthFlow_ExternalIdentityKeepsItsOwnAccount(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	_, _, err := svc.Register(ctx, "FB_123456", "secret-pw", "", "")
	require.ErrorIs(t, err, common.ErrInvalidInput)

	local, _, err := svc.Register(ctx, "fbfan", "secret-pw", "", "")
	require.NoError(t, err)

	external, _, err := svc.UpsertExternalIdentity(ctx, "facebook", "123456", "Jane Doe", "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "fb_123456", external.Username)
	assert.NotEqual(t, local.ID, external.ID)

	_, _, err = svc.Login(ctx, "fb_123456", "secret-pw")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestAuthFlow_ConcurrentUpsertExternalIdentity(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	const n = 8
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, _, err := svc.UpsertExternalIdentity(ctx, "google", "42", "", "")
			if assert.NoError(t, err) {
				ids <- user.ID.String()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1)
}

func TestAuthFlow_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	registered, session, err := svc.Register(ctx, "alice", "pass123", "", "")
	require.NoError(t, err)

	current, err := svc.CurrentUser(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, current.ID)

	require.NoError(t, svc.Logout(ctx, session.Token))
	require.NoError(t, svc.Logout(ctx, session.Token))
	require.NoError(t, svc.Logout(ctx, "not-a-token"))

	_, err = svc.CurrentUser(ctx, session.Token)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthFlow_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	svc := newMemoryService(t)

	_, first, err := svc.Register(ctx, "alice", "pass123", "", "")
	require.NoError(t, err)
	_, second, err := svc.Login(ctx, "alice", "pass123")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, first.Token))

	_, err = svc.CurrentUser(ctx, first.Token)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = svc.CurrentUser(ctx, second.Token)
	assert.NoError(t, err)
}
