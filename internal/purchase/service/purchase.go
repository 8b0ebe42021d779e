package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/storefront/internal/purchase/models"
	"github.com/Skotchmaster/storefront/internal/purchase/repo"
	"github.com/Skotchmaster/storefront/internal/purchase/transport"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate payment intent")
)

const DefaultHistoryLimit = 10

type PurchaseService struct {
	Repo     *repo.GormRepo
	Events   events.Publisher
	Currency string
}

// Save records a pending purchase for userID, which must come from the verified
// identity, never from the request body. Only MarkPaymentStatus moves it on.
func (s *PurchaseService) Save(ctx context.Context, userID string, req transport.SavePurchaseRequest) (*models.Purchase, error) {
	p := &models.Purchase{
		UserID:          userID,
		ProductID:       strings.TrimSpace(req.ProductID),
		ProductName:     strings.TrimSpace(req.ProductName),
		ProductPrice:    req.ProductPrice,
		ProductImage:    req.ProductImage,
		PaymentIntentID: strings.TrimSpace(req.PaymentIntentID),
		Amount:          req.Amount,
		Currency:        strings.ToLower(strings.TrimSpace(req.Currency)),
		PaymentStatus:   models.PaymentPending,
	}
	if p.Currency == "" {
		p.Currency = s.currency()
	}

	switch {
	case userID == "":
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	case p.ProductID == "" || p.ProductName == "":
		return nil, fmt.Errorf("%w: product is required", ErrValidation)
	case p.PaymentIntentID == "":
		return nil, fmt.Errorf("%w: payment intent is required", ErrValidation)
	case p.Amount <= 0:
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	case p.ProductPrice < 0:
		return nil, fmt.Errorf("%w: product price cannot be negative", ErrValidation)
	}

	if err := s.Repo.CreatePurchase(ctx, p); err != nil {
		if errors.Is(err, repo.ErrDuplicateIntent) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicPurchases, p.ID, map[string]any{
		"type":            "purchase_saved",
		"purchaseID":      p.ID,
		"userID":          p.UserID,
		"productID":       p.ProductID,
		"paymentIntentID": p.PaymentIntentID,
		"amount":          p.Amount,
	})
	return p, nil
}

func (s *PurchaseService) History(ctx context.Context, userID string, offset, limit int) (int64, []models.Purchase, error) {
	return s.Repo.ListByUser(ctx, userID, offset, limit)
}

func (s *PurchaseService) Get(ctx context.Context, userID, id string) (*models.Purchase, error) {
	p, err := s.Repo.GetForUser(ctx, id, userID)
	if errors.Is(err, repo.ErrPurchaseNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// MarkPaymentStatus applies a provider notification to the purchase that
// carries intentID.
func (s *PurchaseService) MarkPaymentStatus(ctx context.Context, intentID, status string) (*models.Purchase, error) {
	l := logging.FromContext(ctx).With("svc", "purchase.mark_payment_status")

	if !models.ValidPaymentStatus(status) {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, status)
	}

	p, err := s.Repo.UpdatePaymentStatus(ctx, intentID, status)
	if err != nil {
		if errors.Is(err, repo.ErrPurchaseNotFound) {
			l.Warn("payment_status_skipped", "reason", "no purchase for intent", "payment_intent_id", intentID)
			return nil, ErrNotFound
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicPurchases, p.ID, map[string]any{
		"type":            "payment_" + status,
		"purchaseID":      p.ID,
		"userID":          p.UserID,
		"paymentIntentID": intentID,
	})
	return p, nil
}

func (s *PurchaseService) Stats(ctx context.Context) (repo.Stats, error) {
	return s.Repo.Stats(ctx)
}

func (s *PurchaseService) currency() string {
	if s.Currency == "" {
		return "usd"
	}
	return s.Currency
}
