package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// CustomerLookup resolves a provider customer id to its email address.
type CustomerLookup interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// StripeCustomers looks customers up through the Stripe API.
type StripeCustomers struct {
	api *client.API
}

// NewStripeCustomers builds a lookup client for secretKey. baseURL overrides
// the API endpoint and is empty in production.
func NewStripeCustomers(secretKey, baseURL string) *StripeCustomers {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return &StripeCustomers{}
	}
	var backends *stripe.Backends
	if baseURL != "" {
		b := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(strings.TrimRight(baseURL, "/")),
			MaxNetworkRetries: stripe.Int64(0),
		})
		backends = &stripe.Backends{API: b, Connect: b, Uploads: b}
	}
	return &StripeCustomers{api: client.New(secretKey, backends)}
}

// CustomerEmail fetches the customer and returns its email. Deleted
// customers resolve to an empty address.
func (s *StripeCustomers) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	if s == nil || s.api == nil {
		return "", ErrLookupDisabled
	}
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := s.api.Customers.Get(customerID, params)
	if err != nil {
		return "", fmt.Errorf("stripe customer %s: %w", customerID, err)
	}
	if c == nil || c.Deleted {
		return "", nil
	}
	return strings.TrimSpace(c.Email), nil
}
