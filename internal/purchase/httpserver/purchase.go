package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth/identity"
	"github.com/Skotchmaster/storefront/internal/auth/middleware"
	"github.com/Skotchmaster/storefront/internal/purchase/service"
	"github.com/Skotchmaster/storefront/internal/purchase/transport"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/pagination"
)

type PurchaseHTTP struct {
	Svc *service.PurchaseService
}

func (h *PurchaseHTTP) Mount(g *echo.Group, gate *middleware.Gate) {
	g.Use(gate.RequireAuth)
	g.POST("", h.SavePurchase)
	g.GET("", h.GetHistory)
	g.GET("/:id", h.GetPurchase)
}

func (h *PurchaseHTTP) SavePurchase(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "purchase.save")

	var req transport.SavePurchaseRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("save_purchase_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("Invalid request body")
	}

	id, _ := identity.FromContext(ctx)
	p, err := h.Svc.Save(ctx, id.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("save_purchase_error", "status", 400, "error", err)
			return apperr.Validation(detail(err))
		case errors.Is(err, service.ErrDuplicate):
			l.Warn("save_purchase_error", "status", 409, "payment_intent_id", req.PaymentIntentID)
			return apperr.Conflict(http.StatusConflict, "Purchase already recorded for this payment")
		default:
			l.Error("save_purchase_error", "status", 500, "reason", "cannot save purchase", "error", err)
			return apperr.Internal(err)
		}
	}

	l.Info("save_purchase_success", "purchase_id", p.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "Purchase saved successfully",
		"purchase": p,
	})
}

func (h *PurchaseHTTP) GetHistory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "purchase.history")

	page, offset, limit := pagination.Calculate(
		pagination.ParseIntDefault(c.QueryParam("page"), 1),
		pagination.ParseIntDefault(c.QueryParam("limit"), service.DefaultHistoryLimit),
		service.DefaultHistoryLimit,
	)

	id, _ := identity.FromContext(ctx)
	total, items, err := h.Svc.History(ctx, id.ID, offset, limit)
	if err != nil {
		l.Error("purchase_history_error", "status", 500, "error", err)
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"purchases":   items,
		"totalPages":  pagination.TotalPages(total, limit),
		"currentPage": page,
		"total":       total,
	})
}

func (h *PurchaseHTTP) GetPurchase(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "purchase.get")

	id, _ := identity.FromContext(ctx)
	p, err := h.Svc.Get(ctx, id.ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_purchase_failed", "status", 404, "purchase_id", c.Param("id"))
			return apperr.NotFound("Purchase not found")
		}
		l.Error("get_purchase_failed", "status", 500, "error", err)
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, p)
}

func detail(err error) string {
	if msg, ok := strings.CutPrefix(err.Error(), service.ErrValidation.Error()+": "); ok {
		return msg
	}
	return "Invalid request"
}
