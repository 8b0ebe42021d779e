// Package identity carries the authenticated caller through request contexts.
package identity

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/token"
)

// Identity is only ever built from verified access-token claims or from a user
// whose stored refresh token has been validated.
type Identity struct {
	ID       string
	Username string
	// Role is empty until a role check has loaded it.
	Role string
}

type ctxKey struct{}

func FromClaims(c *token.Claims) Identity { return Identity{ID: c.UserID} }

func FromUser(u *models.User) Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

func IntoContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.ID != ""
}
