package payments

import (
	"strings"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
	"github.com/stripe/stripe-go/v72/webhook"
)

// Init sets the account secret key used by all Stripe calls.
func Init(secretKey string) {
	stripe.Key = secretKey
}

// CreateIntent requests a payment intent for the given minor-unit amount and
// currency. Declared as a variable so tests can stub the Stripe round trip.
var CreateIntent = func(amount int64, currency string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	return paymentintent.New(params)
}

// UpdateIntentMetadata attaches metadata to an existing payment intent.
// Declared as a variable so tests can stub the Stripe round trip.
var UpdateIntentMetadata = func(id string, metadata map[string]string) error {
	params := &stripe.PaymentIntentParams{}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	_, err := paymentintent.Update(id, params)
	return err
}

// ConstructEvent verifies the webhook signature header against the shared
// secret and parses the event payload.
func ConstructEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, secret)
}

// IntentID recovers the payment intent id from a client secret, which has the
// form "<intent id>_secret_<random>".
func IntentID(clientSecret string) string {
	return strings.SplitN(clientSecret, "_secret", 2)[0]
}
