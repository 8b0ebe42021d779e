package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testWebhookSecret = "whsec_test"

func sign(t *testing.T, payload string, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestStripe_ParseWebhook(t *testing.T) {
	t.Parallel()

	gw := NewStripe("sk_test_unused", testWebhookSecret)

	succeeded := `{"id":"evt_1","object":"event","type":"payment_intent.succeeded",` +
		`"data":{"object":{"id":"pi_123","object":"payment_intent","amount":1999,"currency":"usd"}}}`
	ev, err := gw.ParseWebhook([]byte(succeeded), sign(t, succeeded, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.IntentID)

	other := `{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`
	ev, err = gw.ParseWebhook([]byte(other), sign(t, other, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "customer.created", ev.Type)
	assert.Empty(t, ev.IntentID)

	_, err = gw.ParseWebhook([]byte(succeeded), sign(t, succeeded, "whsec_other"))
	assert.True(t, errors.Is(err, ErrInvalidSignature))

	_, err = gw.ParseWebhook([]byte(succeeded), "")
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestStripe_CreateIntent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "1999", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "prod-1", r.PostForm.Get("metadata[productId]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_abc","object":"payment_intent","client_secret":"pi_abc_secret_xyz","amount":1999,"currency":"usd"}`))
	}))
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	gw := NewStripeWithBackends("sk_test_123", testWebhookSecret, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	intent, err := gw.CreateIntent(context.Background(), IntentParams{
		Amount:   1999,
		Currency: "usd",
		Metadata: map[string]string{"productId": "prod-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_abc", intent.ID)
	assert.Equal(t, "pi_abc_secret_xyz", intent.ClientSecret)
	assert.Equal(t, int64(1999), intent.Amount)
}
