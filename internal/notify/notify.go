// Package notify delivers donation receipt emails. A Dispatcher tries a
// primary transport and, when that fails, a single secondary transport.
// Transports without credentials are never constructed, so they are
// skipped rather than attempted.
package notify

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoTransport is returned when no email transport is configured.
	ErrNoTransport = errors.New("no email transport configured")
	// ErrNoRecipient is returned for a message without a destination.
	ErrNoRecipient = errors.New("message has no recipient")
)

// Message is a rendered email with HTML and plain-text alternatives.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Receipt identifies an accepted message.
type Receipt struct {
	Transport string `json:"transport"`
	ID        string `json:"id,omitempty"`
}

// Transport sends a single message through one email backend.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// DeliveryError reports that both the primary and the secondary transport
// failed. Its message names both transports and both causes.
type DeliveryError struct {
	PrimaryName   string
	Primary       error
	SecondaryName string
	Secondary     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("all email transports failed: %s: %v; %s: %v",
		e.PrimaryName, e.Primary, e.SecondaryName, e.Secondary)
}

// Unwrap exposes both causes to errors.Is / errors.As.
func (e *DeliveryError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}
