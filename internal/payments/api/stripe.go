package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/paymentintent"
)

// StripeCharger charges orders through Stripe payment intents.
type StripeCharger struct{}

// Charge creates a payment intent for the amount and returns Stripe's id
// for it. Each call carries a fresh idempotency key; retries of a failed
// HTTP request are the caller's concern.
func (StripeCharger) Charge(amountCents int64, orderID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
	}
	params.AddMetadata("order_id", orderID)
	params.SetIdempotencyKey(uuid.New().String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return pi.ID, nil
}
