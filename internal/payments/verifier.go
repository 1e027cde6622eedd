package payments

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81/webhook"
)

// Event types routed by the webhook receiver.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

// DefaultTolerance is the maximum accepted age of a signed delivery.
const DefaultTolerance = 300 * time.Second

// Event is a verified provider event. Object holds data.object verbatim.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Object  json.RawMessage
}

// Verifier authenticates webhook deliveries against the signing secret.
// It is immutable after construction and safe for concurrent use.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier builds a Verifier. A non-positive tolerance falls back to
// DefaultTolerance. An empty secret is accepted here and reported on every
// Verify call instead.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: strings.TrimSpace(secret), tolerance: tolerance}
}

// Configured reports whether a signing secret is present.
func (v *Verifier) Configured() bool { return v != nil && v.secret != "" }

// Verify checks sigHeader against the exact payload bytes and decodes the
// event. The HMAC-SHA256 is computed over "<timestamp>.<payload>" and the
// timestamp must be within the tolerance window.
func (v *Verifier) Verify(payload []byte, sigHeader string) (*Event, error) {
	if !v.Configured() {
		return nil, ErrSecretNotConfigured
	}
	if strings.TrimSpace(sigHeader) == "" {
		return nil, ErrMissingSignature
	}

	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	switch {
	case err == nil:
	case errors.Is(err, webhook.ErrNotSigned):
		return nil, ErrMissingSignature
	case errors.Is(err, webhook.ErrInvalidHeader),
		errors.Is(err, webhook.ErrNoValidSignature),
		errors.Is(err, webhook.ErrTooOld):
		return nil, ErrInvalidSignature
	default:
		return nil, ErrInvalidPayload
	}

	if strings.TrimSpace(string(evt.Type)) == "" {
		return nil, ErrInvalidPayload
	}
	out := &Event{
		ID:   evt.ID,
		Type: string(evt.Type),
	}
	if evt.Created > 0 {
		out.Created = time.Unix(evt.Created, 0).UTC()
	}
	if evt.Data != nil {
		out.Object = evt.Data.Raw
	}
	return out, nil
}
