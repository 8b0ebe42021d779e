package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth/middleware"
)

// Mount registers the /api/auth routes on g. limit wraps the credential
// endpoints (signup and login).
func (h *AuthHTTP) Mount(g *echo.Group, gate *middleware.Gate, limit ...echo.MiddlewareFunc) {
	g.POST("/signup", h.Signup, limit...)
	g.POST("/login", h.Login, limit...)
	g.POST("/refresh", h.Refresh)

	private := g.Group("", gate.RequireAuth)
	private.POST("/logout", h.LogOut)
	private.GET("/profile", h.Profile)
}
