package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	"github.com/Skotchmaster/storefront/internal/auth/token"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/cookies"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/lock"
)

type testEnv struct {
	gate   *Gate
	store  *repo.MemoryStore
	tokens *token.Service
	events *events.Recorder
	now    time.Time
	user   *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:  repo.NewMemoryStore(),
		events: &events.Recorder{},
		now:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	env.tokens = token.NewService([]byte("access-secret"), []byte("refresh-secret"), 0, 0, env.store)
	env.tokens.Now = func() time.Time { return env.now }
	env.gate = &Gate{
		Tokens: env.tokens,
		Users:  env.store,
		Locker: lock.NewKeyedMutex(),
		Events: env.events,
	}

	env.user = &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}
	require.NoError(t, env.store.CreateUser(context.Background(), env.user))
	return env
}

// login mimics the controller: persist a refresh token, hand back the cookies.
func (env *testEnv) login(t *testing.T) (*cookies.MapJar, string) {
	t.Helper()

	refresh, _, err := env.tokens.IssueRefreshToken(env.user.ID)
	require.NoError(t, err)
	require.NoError(t, env.store.SetRefreshToken(context.Background(), env.user.ID, refresh))

	access, _, err := env.tokens.IssueAccessToken(env.user.ID)
	require.NoError(t, err)

	return cookies.NewMapJar(map[string]string{
		cookies.AccessToken: access,
		cookies.UserID:      env.user.ID,
	}), refresh
}

func requireCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok, "want *apperr.Error, got %v", err)
	assert.Equal(t, status, e.Status)
	assert.Equal(t, code, e.Code)
}

func deleted(jar *cookies.MapJar, name string) bool {
	for _, c := range jar.Written {
		if c.Name == name && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestAuthenticate_ValidTokenIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar, _ := env.login(t)

	first, err := env.gate.Authenticate(context.Background(), jar)
	require.NoError(t, err)
	second, err := env.gate.Authenticate(context.Background(), jar)
	require.NoError(t, err)

	assert.Equal(t, Authorized, first.Outcome)
	assert.Equal(t, first, second)
	assert.Equal(t, env.user.ID, first.Identity.ID)
	assert.Empty(t, jar.Written, "no cookie mutation on the fast path")
}

func TestAuthenticate_NoCookies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar := cookies.NewMapJar(nil)

	_, err := env.gate.Authenticate(context.Background(), jar)
	requireCode(t, err, http.StatusUnauthorized, apperr.CodeTokenMissing)
	assert.Empty(t, jar.Written)
}

func TestAuthenticate_ExpiredTokenRefreshes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar, _ := env.login(t)
	before, err := env.gate.Authenticate(context.Background(), jar)
	require.NoError(t, err)
	oldAccess := jar.Values[cookies.AccessToken]

	env.now = env.now.Add(3 * time.Minute)

	res, err := env.gate.Authenticate(context.Background(), jar)
	require.NoError(t, err)
	assert.Equal(t, AuthorizedViaRefresh, res.Outcome)
	assert.Equal(t, before.Identity.ID, res.Identity.ID)
	assert.Equal(t, "alice", res.Identity.Username)

	require.Len(t, jar.Written, 1)
	set := jar.Written[0]
	assert.Equal(t, cookies.AccessToken, set.Name)
	assert.Equal(t, 120, set.MaxAge)
	assert.NotEqual(t, oldAccess, set.Value)

	claims, err := env.tokens.VerifyAccessToken(set.Value)
	require.NoError(t, err)
	assert.Equal(t, env.user.ID, claims.UserID)

	again, err := env.gate.Authenticate(context.Background(), jar)
	require.NoError(t, err)
	assert.Equal(t, Authorized, again.Outcome)
}

func TestAuthenticate_MissingAccessCookieFallsBackToUserID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar, _ := env.login(t)
	delete(jar.Values, cookies.AccessToken)

	res, err := env.gate.Authenticate(context.Background(), jar)
	require.NoError(t, err)
	assert.Equal(t, AuthorizedViaRefresh, res.Outcome)
	assert.NotEmpty(t, jar.Values[cookies.AccessToken])
}

func TestAuthenticate_UndecodableToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar := cookies.NewMapJar(map[string]string{cookies.AccessToken: "garbage"})

	_, err := env.gate.Authenticate(context.Background(), jar)
	requireCode(t, err, http.StatusUnauthorized, apperr.CodeTokenDecodeError)
	assert.True(t, deleted(jar, cookies.AccessToken))
}

func TestAuthenticate_TokenWithoutID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	// {"alg":"HS256","typ":"JWT"}.{"exp":1}.sig
	claimsless := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJleHAiOjF9.c2ln"
	jar := cookies.NewMapJar(map[string]string{cookies.AccessToken: claimsless})

	_, err := env.gate.Authenticate(context.Background(), jar)
	requireCode(t, err, http.StatusUnauthorized, apperr.CodeInvalidTokenFormat)
	assert.True(t, deleted(jar, cookies.AccessToken))
}

func TestAuthenticate_ForgedTokenForUnknownUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	forger := token.NewService([]byte("wrong"), []byte("wrong2"), 0, 0, nil)
	tok, _, err := forger.IssueAccessToken(uuid.NewString())
	require.NoError(t, err)
	jar := cookies.NewMapJar(map[string]string{cookies.AccessToken: tok})

	_, err = env.gate.Authenticate(context.Background(), jar)
	requireCode(t, err, http.StatusUnauthorized, apperr.CodeNoRefreshTokenFound)
	assert.True(t, deleted(jar, cookies.AccessToken))
	assert.True(t, deleted(jar, cookies.UserID))
}

func TestAuthenticate_AfterLogoutNoRefreshToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar, _ := env.login(t)
	require.NoError(t, env.store.ClearRefreshToken(context.Background(), env.user.ID))

	env.now = env.now.Add(3 * time.Minute)
	_, err := env.gate.Authenticate(context.Background(), jar)
	requireCode(t, err, http.StatusUnauthorized, apperr.CodeNoRefreshTokenFound)
}

func TestAuthenticate_ExpiredRefreshTokenIsRevoked(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar, _ := env.login(t)

	env.now = env.now.Add(8 * 24 * time.Hour)
	_, err := env.gate.Authenticate(context.Background(), jar)
	requireCode(t, err, http.StatusUnauthorized, apperr.CodeRefreshTokenInvalid)

	stored, err := env.store.GetUserWithRefreshToken(context.Background(), env.user.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasRefreshToken(), "failed token is cleared")
	assert.True(t, deleted(jar, cookies.AccessToken))
	assert.True(t, deleted(jar, cookies.UserID))
	assert.Equal(t, []string{"refresh_token_revoked"}, env.events.Types(events.TopicUsers))
}

func TestAuthenticate_RevocationKeepsNewerLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	stale, _, err := env.tokens.IssueRefreshToken(env.user.ID)
	require.NoError(t, err)
	fresh, _, err := env.tokens.IssueRefreshToken(env.user.ID)
	require.NoError(t, err)
	require.NoError(t, env.store.SetRefreshToken(ctx, env.user.ID, fresh))

	require.NoError(t, env.gate.revoke(ctx, env.user.ID, stale))

	stored, err := env.store.GetUserWithRefreshToken(ctx, env.user.ID)
	require.NoError(t, err)
	require.True(t, stored.HasRefreshToken())
	assert.Equal(t, fresh, *stored.RefreshToken)
	assert.Empty(t, env.events.Events())
}

type failingStore struct {
	*repo.MemoryStore
}

func (failingStore) GetUserWithRefreshToken(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	jar, _ := env.login(t)
	env.gate.Users = failingStore{env.store}
	env.now = env.now.Add(3 * time.Minute)

	_, err := env.gate.Authenticate(context.Background(), jar)
	requireCode(t, err, http.StatusInternalServerError, apperr.CodeAuthError)
}

func TestOutcomeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "authorized", Authorized.String())
	assert.Equal(t, "authorized_via_refresh", AuthorizedViaRefresh.String())
	assert.Equal(t, "rejected", Rejected.String())
}
