// Package authtest wires a Gate over an in-memory user store for handler tests
// in other packages.
package authtest

import (
	"context"
	"net/http"
	"testing"

	"github.com/Skotchmaster/storefront/internal/auth/middleware"
	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	"github.com/Skotchmaster/storefront/internal/auth/token"
	"github.com/Skotchmaster/storefront/pkg/cookies"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/lock"
)

type Env struct {
	Store  *repo.MemoryStore
	Tokens *token.Service
	Gate   *middleware.Gate
}

func New(t testing.TB) *Env {
	t.Helper()

	store := repo.NewMemoryStore()
	tokens := token.NewService([]byte("test-access-secret"), []byte("test-refresh-secret"), 0, 0, store)
	return &Env{
		Store:  store,
		Tokens: tokens,
		Gate: &middleware.Gate{
			Tokens: tokens,
			Users:  store,
			Locker: lock.NewKeyedMutex(),
			Events: events.Nop{},
		},
	}
}

// User stores a user with the given role and a live refresh token.
func (e *Env) User(t testing.TB, username, role string) *models.User {
	t.Helper()

	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
		Role:         role,
	}
	if err := e.Store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	refresh, _, err := e.Tokens.IssueRefreshToken(u.ID)
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}
	if err := e.Store.SetRefreshToken(context.Background(), u.ID, refresh); err != nil {
		t.Fatalf("store refresh token: %v", err)
	}
	return u
}

// Authorize attaches the session cookies of u to req.
func (e *Env) Authorize(t testing.TB, req *http.Request, u *models.User) {
	t.Helper()

	access, _, err := e.Tokens.IssueAccessToken(u.ID)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: cookies.AccessToken, Value: access})
	req.AddCookie(&http.Cookie{Name: cookies.UserID, Value: u.ID})
}
