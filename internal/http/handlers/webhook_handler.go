// Webhook HTTP handler.
//
// This file exposes the payment provider endpoint:
//   - POST /donations/webhook
//
// The raw body is read verbatim because the signature covers the exact
// bytes; it must never be decoded and re-encoded before verification.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shelter-backend/internal/http/middleware"
	"github.com/tbourn/go-shelter-backend/internal/payments"
	"github.com/tbourn/go-shelter-backend/internal/services"
)

const signatureHeader = "Stripe-Signature"

// WebhookAck is the success body of the webhook endpoint.
type WebhookAck struct {
	Received   bool   `json:"received" example:"true"`
	Status     string `json:"status" example:"success"`
	DonationID string `json:"donationId,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	EmailError string `json:"emailError,omitempty"`
}

// StripeWebhook godoc
// @ID          stripeWebhook
// @Summary     Receive a payment provider webhook
// @Description Verifies the Stripe-Signature header against the raw body, records
// @Description the donation for payment_intent.succeeded exactly once, and sends
// @Description the receipt. Redeliveries answer duplicate_processed.
// @Tags        Donations
// @Accept      json
// @Produce     json
//
// @Param       Stripe-Signature  header  string  true  "Provider signature header"  example(t=1700000000,v1=5257a8...)
// @Param       body              body    object  true  "Raw provider event"
//
// @Success     200  {object}  handlers.WebhookAck
// @Failure     400  {object}  handlers.WebhookErrorResponse  "Rejected delivery"
// @Failure     500  {object}  handlers.WebhookErrorResponse  "Internal error"
// @Router      /donations/webhook [post]
func (h *Handlers) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		failWebhook(c, http.StatusBadRequest, ErrCodeInvalidPayload, "could not read request body")
		return
	}

	res, err := h.webhookSvc.Handle(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	if err != nil {
		h.webhookError(c, err)
		return
	}

	ack := WebhookAck{Received: true, Status: res.Status}
	if res.Donation != nil {
		ack.DonationID = res.Donation.DonationID
		ack.EmailError = res.Donation.EmailError
	}
	ok(c, http.StatusOK, ack)
}

func (h *Handlers) webhookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payments.ErrSecretNotConfigured):
		lg := middleware.LoggerFrom(c)
		lg.Error().Msg("webhook signing secret is not configured")
		failWebhook(c, http.StatusBadRequest, ErrCodeSecretMissing, "webhook signing secret not configured")
	case errors.Is(err, payments.ErrMissingSignature):
		failWebhook(c, http.StatusBadRequest, ErrCodeMissingSignature, "missing Stripe-Signature header")
	case errors.Is(err, payments.ErrInvalidSignature):
		failWebhook(c, http.StatusBadRequest, ErrCodeInvalidSignature, "signature verification failed")
	case errors.Is(err, payments.ErrInvalidPayload),
		errors.Is(err, payments.ErrInvalidCurrency):
		failWebhook(c, http.StatusBadRequest, ErrCodeInvalidPayload, err.Error())
	case errors.Is(err, services.ErrDonorEmailMissing):
		failWebhook(c, http.StatusBadRequest, ErrCodeDonorEmailMissing, "donor email is required for the receipt")
	default:
		failWebhookInternal(c, err)
	}
}
