package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-shelter-backend/internal/config"
	"github.com/tbourn/go-shelter-backend/internal/observability"
)

// Dispatcher sends messages through a primary transport with at most one
// fallback hop. It is built once at start-up and is read-only afterwards.
type Dispatcher struct {
	primary   Transport
	secondary Transport
}

// NewDispatcher orders the given transports; nil entries are skipped. The
// first non-nil transport becomes the primary, the next the secondary.
func NewDispatcher(transports ...Transport) *Dispatcher {
	d := &Dispatcher{}
	for _, t := range transports {
		if t == nil {
			continue
		}
		switch {
		case d.primary == nil:
			d.primary = t
		case d.secondary == nil:
			d.secondary = t
		}
	}
	return d
}

// NewFromConfig builds the transports that have credentials and orders them
// by cfg.Primary. A nil client gets one bounded by cfg.SendTimeout.
func NewFromConfig(cfg config.EmailConfig, client *http.Client) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.SendTimeout}
	}
	var resend, smtp Transport
	if strings.TrimSpace(cfg.Resend.APIKey) != "" {
		resend = NewResendTransport(cfg.Resend.APIKey, cfg.Resend.BaseURL, cfg.From, client)
	}
	if strings.TrimSpace(cfg.SMTP.Host) != "" {
		smtp = NewSMTPTransport(cfg.SMTP, cfg.From)
	}
	if cfg.Primary == config.TransportSMTP {
		return NewDispatcher(smtp, resend)
	}
	return NewDispatcher(resend, smtp)
}

// Transports lists the configured transport names in attempt order.
func (d *Dispatcher) Transports() []string {
	var out []string
	if d == nil {
		return out
	}
	for _, t := range []Transport{d.primary, d.secondary} {
		if t != nil {
			out = append(out, t.Name())
		}
	}
	return out
}

// Send delivers msg through the primary transport. When the primary fails
// and a secondary exists, the secondary gets the same message; if it fails
// too the result is a *DeliveryError. Without any transport Send returns
// ErrNoTransport.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (Receipt, error) {
	if d == nil || d.primary == nil {
		return Receipt{}, ErrNoTransport
	}
	if strings.TrimSpace(msg.To) == "" {
		return Receipt{}, ErrNoRecipient
	}

	r, err := d.attempt(ctx, d.primary, msg)
	if err == nil {
		return r, nil
	}
	if d.secondary == nil {
		return Receipt{}, fmt.Errorf("%s: %w", d.primary.Name(), err)
	}

	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("transport", d.primary.Name()).
		Str("fallback", d.secondary.Name()).
		Msg("primary email transport failed")

	r, err2 := d.attempt(ctx, d.secondary, msg)
	if err2 == nil {
		return r, nil
	}
	return Receipt{}, &DeliveryError{
		PrimaryName:   d.primary.Name(),
		Primary:       err,
		SecondaryName: d.secondary.Name(),
		Secondary:     err2,
	}
}

func (d *Dispatcher) attempt(ctx context.Context, t Transport, msg Message) (Receipt, error) {
	r, err := t.Send(ctx, msg)
	observability.ObserveReceipt(t.Name(), err)
	if err != nil {
		return Receipt{}, err
	}
	if r.Transport == "" {
		r.Transport = t.Name()
	}
	return r, nil
}
