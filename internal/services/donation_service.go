// Package services – DonationService
//
// This file implements DonationService, which turns a successful payment
// event into exactly one donation record and at most one receipt email.
//
// Idempotency works in two database steps keyed by the provider transaction
// id: an insert-if-absent that writes every column only on insert, then a
// conditional update that flips receipt_sent from false to true. The caller
// whose update reports one affected row owns the receipt; every other
// delivery of the same payment is a duplicate.
//
// Observability: HandlePaymentSucceeded is OpenTelemetry-instrumented and
// logs through the request-scoped zerolog logger found in ctx.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-shelter-backend/internal/config"
	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/notify"
	"github.com/tbourn/go-shelter-backend/internal/payments"
	"github.com/tbourn/go-shelter-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result statuses reported back to the payment provider.
const (
	StatusSuccess             = "success"
	StatusDuplicateProcessed  = "duplicate_processed"
	StatusSavedButEmailFailed = "saved_but_email_failed"
)

// outcomeWriteTimeout bounds the receipt outcome update after a send.
const outcomeWriteTimeout = 5 * time.Second

// Mailer delivers a rendered receipt. *notify.Dispatcher satisfies it.
type Mailer interface {
	Send(ctx context.Context, msg notify.Message) (notify.Receipt, error)
}

// DonationResult describes what a successful-payment delivery did.
type DonationResult struct {
	Status        string
	DonationID    string
	TransactionID string
	Transport     string
	EmailError    string
}

// DonationService records donations from payment events and sends receipts.
type DonationService struct {
	DB     *gorm.DB
	Mailer Mailer
	// Customers resolves the donor email when the event carries none.
	// Nil disables the lookup.
	Customers payments.CustomerLookup
	Org       config.OrgConfig
	// SendTimeout bounds receipt delivery, which is detached from the
	// inbound request's cancellation.
	SendTimeout time.Duration

	now func() time.Time
}

// NewDonationService constructs a DonationService with a 10s send timeout.
func NewDonationService(db *gorm.DB, mailer Mailer, customers payments.CustomerLookup, org config.OrgConfig) *DonationService {
	return &DonationService{
		DB:          db,
		Mailer:      mailer,
		Customers:   customers,
		Org:         org,
		SendTimeout: 10 * time.Second,
	}
}

func (s *DonationService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// HandlePaymentSucceeded processes a verified payment_intent.succeeded event.
//
// It returns payments.ErrInvalidPayload or payments.ErrInvalidCurrency for
// undecodable events, ErrDonorEmailMissing when no destination exists, and
// raw database errors otherwise; in all of those cases no record was created
// by this call. Once the record exists the returned error is nil, and an
// email failure is reported as StatusSavedButEmailFailed.
func (s *DonationService) HandlePaymentSucceeded(ctx context.Context, evt *payments.Event) (*DonationResult, error) {
	tr := otel.Tracer("services/DonationService")
	ctx, span := tr.Start(ctx, "HandlePaymentSucceeded",
		trace.WithAttributes(attribute.String("event.id", evt.ID)),
	)
	defer span.End()

	pi, err := payments.ParsePaymentIntent(evt.Object)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("donation.transaction_id", pi.ID))
	lg := zerolog.Ctx(ctx).With().Str("event_id", evt.ID).Str("transaction_id", pi.ID).Logger()

	unit, err := payments.NormalizeCurrency(pi.Currency)
	if err != nil {
		return nil, err
	}

	email, err := s.resolveEmail(ctx, pi)
	if err != nil {
		return nil, err
	}

	name := pi.Meta("donor_name", "donorName")
	if name == "" {
		name = domain.AnonymousDonor
	}
	d := &domain.Donation{
		TransactionID:    pi.ID,
		DonorName:        name,
		DonorEmail:       email,
		Amount:           payments.MinorToMajor(pi.MinorAmount(), unit),
		Currency:         unit.String(),
		DonationType:     domain.NormalizeDonationType(pi.Meta("donation_type", "donationType")),
		PaymentStatus:    domain.PaymentCompleted,
		IsEmergency:      pi.MetaBool("is_emergency", "isEmergency"),
		StripeCustomerID: pi.CustomerID(),
	}

	inserted, err := repo.InsertDonationIfAbsent(ctx, s.DB, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert donation")
		return nil, fmt.Errorf("insert donation: %w", err)
	}

	won, err := repo.ClaimReceipt(ctx, s.DB, pi.ID, s.clock())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim receipt")
		return nil, fmt.Errorf("claim receipt: %w", err)
	}

	// The stored row may come from another delivery; its insert-only fields win.
	stored, err := repo.GetDonationByTransactionID(ctx, s.DB, pi.ID)
	if err != nil {
		return nil, fmt.Errorf("load donation: %w", err)
	}
	res := &DonationResult{DonationID: stored.ID, TransactionID: pi.ID}
	span.SetAttributes(
		attribute.Bool("donation.inserted", inserted),
		attribute.Bool("donation.receipt_claimed", won),
	)

	if !won {
		lg.Info().Bool("inserted", inserted).Msg("duplicate payment delivery")
		res.Status = StatusDuplicateProcessed
		return res, nil
	}

	receipt, sendErr := s.sendReceipt(ctx, stored)
	if sendErr != nil {
		lg.Error().Err(sendErr).Str("donation_id", stored.ID).Msg("receipt email failed")
		res.Status = StatusSavedButEmailFailed
		res.EmailError = sendErr.Error()
		return res, nil
	}
	lg.Info().Str("donation_id", stored.ID).Str("transport", receipt.Transport).Msg("donation recorded and receipt sent")
	res.Status = StatusSuccess
	res.Transport = receipt.Transport
	return res, nil
}

// sendReceipt renders and dispatches the receipt on a context that survives
// the inbound request but is bounded by SendTimeout, then stores the outcome.
func (s *DonationService) sendReceipt(ctx context.Context, d *domain.Donation) (notify.Receipt, error) {
	timeout := s.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	sentAt := s.clock()
	if d.ReceiptSentAt != nil {
		sentAt = *d.ReceiptSentAt
	}
	msg, err := notify.RenderReceipt(notify.ReceiptData{
		OrgName:       s.Org.Name,
		TaxID:         s.Org.TaxID,
		DonorName:     d.DonorName,
		DonorEmail:    d.DonorEmail,
		Amount:        d.Amount,
		Currency:      d.Currency,
		DonationType:  d.DonationType,
		TransactionID: d.TransactionID,
		Date:          sentAt,
		IsEmergency:   d.IsEmergency,
	})
	if err != nil {
		return notify.Receipt{}, fmt.Errorf("render receipt: %w", err)
	}

	var receipt notify.Receipt
	if s.Mailer == nil {
		err = notify.ErrNoTransport
	} else {
		receipt, err = s.Mailer.Send(sendCtx, msg)
	}

	errText := ""
	if err != nil {
		errText = err.Error()
	}
	// sendCtx may already be expired when the send timed out.
	outCtx, outCancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer outCancel()
	if rerr := repo.RecordReceiptOutcome(outCtx, s.DB, d.ID, receipt.Transport, errText); rerr != nil {
		zerolog.Ctx(ctx).Warn().Err(rerr).Str("donation_id", d.ID).Msg("could not store receipt outcome")
	}
	return receipt, err
}

// resolveEmail looks for the donor address in metadata, then receipt_email,
// then the customer (expanded object or one provider lookup).
func (s *DonationService) resolveEmail(ctx context.Context, pi *payments.PaymentIntent) (string, error) {
	candidates := []string{
		pi.Meta("donor_email", "donorEmail"),
		pi.ReceiptEmail,
		pi.CustomerEmail(),
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return validEmail(c)
		}
	}

	if id := pi.CustomerID(); id != "" && s.Customers != nil {
		email, err := s.Customers.CustomerEmail(ctx, id)
		switch {
		case errors.Is(err, payments.ErrLookupDisabled):
		case err != nil:
			// Transient: no record exists yet, so a provider retry is safe.
			return "", fmt.Errorf("resolve donor email: %w", err)
		case strings.TrimSpace(email) != "":
			return validEmail(strings.TrimSpace(email))
		}
	}
	return "", ErrDonorEmailMissing
}

// validEmail accepts a single bare address. Display names, whitespace and
// header-injection attempts are rejected.
func validEmail(s string) (string, error) {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 || strings.ContainsAny(s, " \t\r\n") {
		return "", ErrDonorEmailMissing
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrDonorEmailMissing
	}
	return s, nil
}
