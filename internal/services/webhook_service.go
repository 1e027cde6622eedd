// Package services – WebhookService
//
// WebhookService authenticates provider deliveries and routes them by event
// type. Only payment_intent.succeeded has side effects on donation records;
// every other verified type is acknowledged. Each verified delivery is also
// written to the webhook event log on a best-effort basis.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/observability"
	"github.com/tbourn/go-shelter-backend/internal/payments"
	"github.com/tbourn/go-shelter-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PaymentHandler processes successful payment events.
// *DonationService satisfies it.
type PaymentHandler interface {
	HandlePaymentSucceeded(ctx context.Context, evt *payments.Event) (*DonationResult, error)
}

// WebhookResult is the acknowledgement returned for a verified delivery.
// Donation is set only for payment_intent.succeeded.
type WebhookResult struct {
	EventID   string
	EventType string
	Status    string
	Donation  *DonationResult
}

// WebhookService verifies and dispatches provider webhook deliveries.
type WebhookService struct {
	DB        *gorm.DB
	Verifier  *payments.Verifier
	Donations PaymentHandler
}

// NewWebhookService constructs a WebhookService.
func NewWebhookService(db *gorm.DB, v *payments.Verifier, donations PaymentHandler) *WebhookService {
	return &WebhookService{DB: db, Verifier: v, Donations: donations}
}

// Handle verifies payload against sigHeader and routes the event.
//
// Verification errors are the payments sentinels and no state is touched.
// For payment_intent.succeeded the donation handler's error is returned
// unchanged so the caller can map it.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, sigHeader string) (*WebhookResult, error) {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(attribute.Int("webhook.payload_bytes", len(payload))),
	)
	defer span.End()

	evt, err := s.Verifier.Verify(payload, sigHeader)
	if err != nil {
		span.SetStatus(codes.Error, "verification failed")
		observability.ObserveWebhook("", domain.OutcomeRejected)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("webhook.event_id", evt.ID),
		attribute.String("webhook.event_type", evt.Type),
	)
	lg := zerolog.Ctx(ctx).With().Str("event_id", evt.ID).Str("event_type", evt.Type).Logger()

	res := &WebhookResult{EventID: evt.ID, EventType: evt.Type}
	logEntry := &domain.WebhookEvent{ID: evt.ID, Type: evt.Type, ReceivedAt: time.Now().UTC()}

	switch evt.Type {
	case payments.EventPaymentSucceeded:
		dr, derr := s.Donations.HandlePaymentSucceeded(ctx, evt)
		if derr != nil {
			span.RecordError(derr)
			span.SetStatus(codes.Error, "payment succeeded handler")
			logEntry.Outcome = outcomeForError(derr)
			logEntry.Detail = derr.Error()
			s.logEvent(ctx, logEntry)
			return nil, derr
		}
		res.Status = dr.Status
		res.Donation = dr
		logEntry.TransactionID = dr.TransactionID
		logEntry.Outcome = dr.Status
		logEntry.Detail = dr.EmailError

	case payments.EventPaymentFailed:
		var txID string
		if pi, perr := payments.ParsePaymentIntent(evt.Object); perr == nil {
			txID = pi.ID
		}
		lg.Warn().Str("transaction_id", txID).Msg("payment failed")
		res.Status = domain.OutcomeLogged
		logEntry.TransactionID = txID
		logEntry.Outcome = domain.OutcomeLogged

	case payments.EventChargeRefunded:
		lg.Info().Msg("charge refunded")
		res.Status = domain.OutcomeRefundAcked
		logEntry.Outcome = domain.OutcomeRefundAcked

	default:
		lg.Debug().Msg("unhandled event type acknowledged")
		res.Status = domain.OutcomeReceived
		logEntry.Outcome = domain.OutcomeReceived
	}

	s.logEvent(ctx, logEntry)
	return res, nil
}

// logEvent writes the audit entry and records the metric. Storage errors
// are logged and otherwise ignored.
func (s *WebhookService) logEvent(ctx context.Context, ev *domain.WebhookEvent) {
	observability.ObserveWebhook(ev.Type, ev.Outcome)
	if s.DB == nil {
		return
	}
	now := time.Now().UTC()
	ev.ProcessedAt = &now
	if err := repo.RecordWebhookEvent(context.WithoutCancel(ctx), s.DB, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event_id", ev.ID).Msg("could not record webhook event")
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, ErrDonorEmailMissing),
		errors.Is(err, payments.ErrInvalidPayload),
		errors.Is(err, payments.ErrInvalidCurrency):
		return domain.OutcomeRejected
	default:
		return domain.OutcomeFailed
	}
}
