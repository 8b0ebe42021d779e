package middleware

import (
	"errors"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth/identity"
	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/cookies"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "auth")

		res, err := g.Authenticate(ctx, cookies.FromEcho(c))
		if err != nil {
			if e, ok := apperr.As(err); ok {
				l.Warn("auth_rejected", "status", e.Status, "code", e.Code, "error", e.Cause)
			}
			return err
		}
		if res.Outcome == AuthorizedViaRefresh {
			l.Info("access_token_refreshed", "user_id", res.Identity.ID)
		}

		c.SetRequest(c.Request().WithContext(identity.IntoContext(ctx, res.Identity)))
		return next(c)
	}
}

// RequireRole must run after RequireAuth. Access tokens carry only the user id,
// so the role is read from the store.
func (g *Gate) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "require_role")

			id, ok := identity.FromContext(ctx)
			if !ok {
				return apperr.Unauthenticated(apperr.CodeTokenMissing, "Authentication required")
			}

			user, err := g.Users.GetUserByID(ctx, id.ID)
			if err != nil {
				if errors.Is(err, repo.ErrUserNotFound) {
					l.Warn("role_check_failed", "status", 401, "reason", "user not found", "user_id", id.ID)
					return apperr.Unauthenticated("", "User not found")
				}
				return authError(err)
			}
			if !slices.Contains(roles, user.Role) {
				l.Warn("role_check_failed", "status", 403, "user_id", id.ID, "role", user.Role)
				return apperr.Forbidden("Access denied: insufficient permissions")
			}

			id.Username, id.Role = user.Username, user.Role
			c.SetRequest(c.Request().WithContext(identity.IntoContext(ctx, id)))
			return next(c)
		}
	}
}

func (g *Gate) RequireAdmin() echo.MiddlewareFunc {
	return g.RequireRole(models.RoleAdmin)
}
