package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/admin/service"
	"github.com/Skotchmaster/storefront/internal/auth/middleware"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/pagination"
)

const defaultUsersPageSize = 10

type AdminHTTP struct {
	Svc *service.AdminService
}

func (h *AdminHTTP) Mount(g *echo.Group, gate *middleware.Gate) {
	g.Use(gate.RequireAuth, gate.RequireAdmin())
	g.GET("/users", h.ListUsers)
	g.GET("/stats", h.Stats)
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	page, offset, limit := pagination.Calculate(
		pagination.ParseIntDefault(c.QueryParam("page"), 1),
		pagination.ParseIntDefault(c.QueryParam("limit"), defaultUsersPageSize),
		defaultUsersPageSize,
	)

	from, err := parseDate(c.QueryParam("startDate"), false)
	if err != nil {
		l.Warn("list_users_error", "status", 400, "reason", "bad startDate", "error", err)
		return apperr.Validation("Invalid startDate")
	}
	to, err := parseDate(c.QueryParam("endDate"), true)
	if err != nil {
		l.Warn("list_users_error", "status", 400, "reason", "bad endDate", "error", err)
		return apperr.Validation("Invalid endDate")
	}

	users, total, err := h.Svc.ListUsers(ctx, repo.UserFilter{
		Search: strings.TrimSpace(c.QueryParam("search")),
		From:   from,
		To:     to,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		l.Error("list_users_error", "status", 500, "error", err)
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"page":     page,
		"pageSize": limit,
		"users":    users,
	})
}

func (h *AdminHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.Svc.Stats(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("admin_stats_error", "status", 500, "error", err)
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the whole
// day.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
