// Package paymenttest provides an in-memory payment.Gateway.
package paymenttest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Skotchmaster/storefront/internal/payment"
)

// Signature is the only webhook signature Gateway accepts.
const Signature = "test-signature"

type Gateway struct {
	mu      sync.Mutex
	n       int
	Intents []payment.IntentParams
	Err     error
}

func (g *Gateway) CreateIntent(_ context.Context, p payment.IntentParams) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Err != nil {
		return nil, g.Err
	}
	g.n++
	g.Intents = append(g.Intents, p)
	id := fmt.Sprintf("pi_test_%d", g.n)
	return &payment.Intent{ID: id, ClientSecret: id + "_secret", Amount: p.Amount, Currency: p.Currency}, nil
}

// ParseWebhook accepts {"id", "type", "intent"} bodies signed with Signature.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != Signature {
		return nil, payment.ErrInvalidSignature
	}
	var body struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, errors.Join(payment.ErrInvalidSignature, err)
	}
	return &payment.Event{ID: body.ID, Type: body.Type, IntentID: body.Intent}, nil
}
