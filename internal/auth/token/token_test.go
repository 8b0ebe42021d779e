package token

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)} }

func newTestService(store RefreshTokenLookup) (*Service, *clock) {
	clk := newClock()
	svc := NewService([]byte("test-access-secret"), []byte("test-refresh-secret"), 0, 0, store)
	svc.Now = clk.Now
	return svc, clk
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, clk := newTestService(nil)
	userID := uuid.NewString()

	tok, exp, err := svc.IssueAccessToken(userID)
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(2*time.Minute), exp)

	clk.Advance(119 * time.Second)
	claims, err := svc.VerifyAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	t.Parallel()

	svc, clk := newTestService(nil)
	tok, _, err := svc.IssueAccessToken("u-1")
	require.NoError(t, err)

	clk.Advance(2*time.Minute + time.Second)
	_, err = svc.VerifyAccessToken(tok)
	assert.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestVerifyAccessToken_Invalid(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	refresh, _, err := svc.IssueRefreshToken("u-1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(svc.AccessSecret)
	require.NoError(t, err)

	tests := []struct {
		name string
		tok  string
	}{
		{"garbage", "not-a-jwt"},
		{"signed with refresh secret", refresh},
		{"alg none", none},
		{"no id claim", noID},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.VerifyAccessToken(tt.tok)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestIssueRefreshToken_UniquePerCall(t *testing.T) {
	t.Parallel()

	svc, clk := newTestService(nil)
	a, expA, err := svc.IssueRefreshToken("u-1")
	require.NoError(t, err)
	b, _, err := svc.IssueRefreshToken("u-1")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "tokens minted in the same second differ by jti")
	assert.Equal(t, clk.Now().Add(7*24*time.Hour), expA)
}

func TestIssue_EmptyUserID(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(nil)
	_, _, err := svc.IssueAccessToken("")
	assert.ErrorIs(t, err, ErrNoSubject)
}

func seedUser(t *testing.T, store *repo.MemoryStore) *models.User {
	t.Helper()
	u := &models.User{Username: "alice", Email: "a@x.com", PasswordHash: "h"}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestVerifyRefreshTokenAgainstUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repo.NewMemoryStore()
	svc, clk := newTestService(store)
	u := seedUser(t, store)

	first, _, err := svc.IssueRefreshToken(u.ID)
	require.NoError(t, err)

	got, err := svc.VerifyRefreshTokenAgainstUser(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, got, "not persisted yet")

	require.NoError(t, store.SetRefreshToken(ctx, u.ID, first))
	got, err = svc.VerifyRefreshTokenAgainstUser(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	second, _, err := svc.IssueRefreshToken(u.ID)
	require.NoError(t, err)
	require.NoError(t, store.SetRefreshToken(ctx, u.ID, second))

	got, err = svc.VerifyRefreshTokenAgainstUser(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, got, "superseded token is revoked")

	got, err = svc.VerifyRefreshTokenAgainstUser(ctx, second)
	require.NoError(t, err)
	assert.NotNil(t, got)

	clk.Advance(7*24*time.Hour + time.Second)
	got, err = svc.VerifyRefreshTokenAgainstUser(ctx, second)
	require.NoError(t, err)
	assert.Nil(t, got, "expired")
}

func TestVerifyRefreshTokenAgainstUser_Mismatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repo.NewMemoryStore()
	svc, _ := newTestService(store)
	u := seedUser(t, store)

	ghost, _, err := svc.IssueRefreshToken(uuid.NewString())
	require.NoError(t, err)
	access, _, err := svc.IssueAccessToken(u.ID)
	require.NoError(t, err)
	require.NoError(t, store.SetRefreshToken(ctx, u.ID, access))

	for name, tok := range map[string]string{
		"unknown user":            ghost,
		"access token as refresh": access,
		"garbage":                 "x.y.z",
	} {
		got, err := svc.VerifyRefreshTokenAgainstUser(ctx, tok)
		require.NoError(t, err, name)
		assert.Nil(t, got, name)
	}
}

func TestRecoverCandidateUserIDFromExpiredToken(t *testing.T) {
	t.Parallel()

	svc, clk := newTestService(nil)
	tok, _, err := svc.IssueAccessToken("u-42")
	require.NoError(t, err)
	clk.Advance(time.Hour)

	_, err = svc.VerifyAccessToken(tok)
	require.ErrorIs(t, err, ErrExpired)

	id, err := svc.RecoverCandidateUserIDFromExpiredToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-42", id.LookupKey())

	_, err = svc.RecoverCandidateUserIDFromExpiredToken("garbage")
	assert.ErrorIs(t, err, ErrUndecodable)

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1}`))
	_, err = svc.RecoverCandidateUserIDFromExpiredToken(header + "." + payload + ".sig")
	assert.ErrorIs(t, err, ErrNoSubject)
}
