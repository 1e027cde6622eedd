// Package payments wraps the payment provider: webhook signature
// verification, event and payment-intent decoding, currency scaling, and
// customer lookups through the Stripe API.
package payments

import "errors"

var (
	// ErrSecretNotConfigured means no webhook signing secret is configured.
	// This is a server misconfiguration, not a client fault.
	ErrSecretNotConfigured = errors.New("webhook signing secret not configured")
	// ErrMissingSignature means the request carried no Stripe-Signature header.
	ErrMissingSignature = errors.New("missing signature header")
	// ErrInvalidSignature covers malformed, mismatched, and expired signatures.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidPayload means the verified body is not a usable event.
	ErrInvalidPayload = errors.New("invalid event payload")
	// ErrInvalidCurrency means the currency is not an ISO-4217 code.
	ErrInvalidCurrency = errors.New("invalid currency")
	// ErrLookupDisabled is returned by customer lookups without an API key.
	ErrLookupDisabled = errors.New("customer lookup disabled")
)
