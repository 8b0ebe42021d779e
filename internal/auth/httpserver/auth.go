package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth/identity"
	"github.com/Skotchmaster/storefront/internal/auth/service"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/cookies"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type AuthHTTP struct {
	Svc        *service.AuthService
	Cookies    cookies.Policy
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("Invalid request body")
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("signup_error", "status", 400, "error", err)
			return apperr.Validation(validationMessage(err))
		case errors.Is(err, service.ErrConflict):
			return apperr.Conflict(http.StatusBadRequest, "User already exists")
		default:
			l.Error("signup_error", "status", 500, "reason", "cannot create user", "error", err)
			return apperr.Internal(err)
		}
	}

	l.Info("signup_successful", "user_id", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{"message": "User created successfully"})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("Invalid request body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return apperr.Validation(validationMessage(err))
		case errors.Is(err, service.ErrInvalidCredentials):
			return apperr.Validation("Invalid credentials")
		default:
			l.Error("login_error", "status", 500, "reason", "cannot log in", "error", err)
			return apperr.Internal(err)
		}
	}

	c.SetCookie(h.Cookies.Create(cookies.AccessToken, res.AccessToken, h.AccessTTL))
	c.SetCookie(h.Cookies.Create(cookies.UserID, res.User.ID, h.RefreshTTL))

	l.Info("login_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"user":    res.User.Session(),
	})
}

// Refresh is mounted without the auth middleware: it is what a client calls
// once its access token is gone.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	jar := cookies.FromEcho(c)
	userID, ok := jar.Get(cookies.UserID)
	if !ok {
		l.Warn("refresh_failed", "status", 401, "reason", "no userId cookie")
		return apperr.Unauthenticated(apperr.CodeTokenMissing, "Refresh token not found")
	}

	res, err := h.Svc.Refresh(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			h.clearSession(jar)
			l.Warn("refresh_failed", "status", 403, "reason", "invalid refresh token")
			return apperr.Forbidden("Invalid refresh token")
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return apperr.Internal(err)
	}

	jar.Set(h.Cookies.Create(cookies.AccessToken, res.AccessToken, h.AccessTTL))
	l.Info("refresh_successful", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Token refreshed"})
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	id, _ := identity.FromContext(ctx)
	if err := h.Svc.LogOut(ctx, id.ID); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return apperr.Internal(err)
	}

	h.clearSession(cookies.FromEcho(c))
	l.Info("logout_successful", "user_id", id.ID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (h *AuthHTTP) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.profile")

	id, _ := identity.FromContext(ctx)
	user, err := h.Svc.Profile(ctx, id.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("profile_failed", "status", 404, "user_id", id.ID)
			return apperr.NotFound("User not found")
		}
		l.Error("profile_failed", "status", 500, "error", err)
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user.Profile()})
}

func (h *AuthHTTP) clearSession(jar cookies.Jar) {
	jar.Set(h.Cookies.Delete(cookies.AccessToken))
	jar.Set(h.Cookies.Delete(cookies.UserID))
}

// validationMessage drops the sentinel prefix so clients see only the detail.
func validationMessage(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), service.ErrValidation.Error()+": "); ok && msg != "" {
		return msg
	}
	return "Invalid request"
}
