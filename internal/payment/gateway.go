// Package payment is the port to the card payment provider.
package payment

import (
	"context"
	"errors"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

type IntentParams struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// Event is a verified provider notification. IntentID is empty for events
// that do not concern a payment intent.
type Event struct {
	ID       string
	Type     string
	IntentID string
}

type Gateway interface {
	CreateIntent(ctx context.Context, p IntentParams) (*Intent, error)
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
