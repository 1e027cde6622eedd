// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` and `failWebhook()` helpers in this package). These codes give
// clients, including the payment provider's delivery dashboard, a stable and
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized, not_found) mirror common HTTP
//     status semantics to aid interoperability.
//   - Webhook codes describe why a delivery was refused. They are always paired
//     with 400 so the provider does not retry a delivery that can never succeed.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example webhook response:
//   {
//     "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//     "code": "invalid_signature",
//     "error": "signature verification failed",
//     "received": false
//   }

package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Webhook-specific:
	ErrCodeSecretMissing     = "webhook_secret_missing"
	ErrCodeMissingSignature  = "missing_signature"
	ErrCodeInvalidSignature  = "invalid_signature"
	ErrCodeInvalidPayload    = "invalid_payload"
	ErrCodeDonorEmailMissing = "donor_email_missing"
)
