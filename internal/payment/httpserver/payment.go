package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/auth/identity"
	"github.com/Skotchmaster/storefront/internal/auth/middleware"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/purchase/models"
	purchasesvc "github.com/Skotchmaster/storefront/internal/purchase/service"
	"github.com/Skotchmaster/storefront/internal/purchase/transport"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type PaymentHTTP struct {
	Gateway   payment.Gateway
	Purchases *purchasesvc.PurchaseService
	Currency  string
}

func (h *PaymentHTTP) Mount(g *echo.Group, gate *middleware.Gate) {
	g.POST("/create-intent", h.CreateIntent, gate.RequireAuth)
	g.POST("/webhook", h.Webhook)
}

func (h *PaymentHTTP) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.create_intent")

	var req transport.CreateIntentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_intent_error", "status", 400, "reason", "invalid body", "error", err)
		return apperr.Validation("Invalid request body")
	}
	if req.Amount <= 0 {
		return apperr.Validation("amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.Currency
	}

	id, _ := identity.FromContext(ctx)
	intent, err := h.Gateway.CreateIntent(ctx, payment.IntentParams{
		Amount:   req.Amount,
		Currency: currency,
		Metadata: map[string]string{
			"productId":   req.ProductID,
			"productName": req.ProductName,
			"userId":      id.ID,
		},
	})
	if err != nil {
		l.Error("create_intent_error", "status", 502, "reason", "payment provider failed", "error", err)
		return apperr.BadGateway("Failed to create payment intent").WithCause(err)
	}

	l.Info("create_intent_success", "payment_intent_id", intent.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
	})
}

// Webhook verifies the provider signature over the raw body before acting on
// the event. Events for intents without a purchase are acknowledged.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return apperr.Validation("Cannot read body")
	}

	ev, err := h.Gateway.ParseWebhook(payload, c.Request().Header.Get(signatureHeader))
	if err != nil {
		l.Warn("webhook_rejected", "status", 400, "error", err)
		if errors.Is(err, payment.ErrInvalidSignature) {
			return apperr.Validation("Webhook signature verification failed")
		}
		return apperr.Validation("Invalid webhook payload")
	}

	var status string
	switch ev.Type {
	case payment.EventIntentSucceeded:
		status = models.PaymentSucceeded
	case payment.EventIntentFailed:
		status = models.PaymentFailed
	default:
		l.Info("webhook_ignored", "event_type", ev.Type)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	if _, err := h.Purchases.MarkPaymentStatus(ctx, ev.IntentID, status); err != nil && !errors.Is(err, purchasesvc.ErrNotFound) {
		l.Error("webhook_failed", "status", 500, "event_id", ev.ID, "error", err)
		return apperr.Internal(err)
	}

	l.Info("webhook_processed", "event_type", ev.Type, "payment_intent_id", ev.IntentID)
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
