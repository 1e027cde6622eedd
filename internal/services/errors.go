// Package services defines the business logic for donation webhooks, receipt
// delivery, and the admin donation queries. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer. Payment-provider errors (signature, payload,
// currency) are defined in package payments and passed through unchanged.
package services

import "errors"

// Donation-related errors.
var (
	// ErrDonorEmailMissing indicates that no usable donor email could be
	// determined from metadata, receipt_email, or the customer record. The
	// event can never succeed and must not be treated as transient.
	ErrDonorEmailMissing = errors.New("donor email missing or invalid")

	// ErrDonationNotFound indicates that the requested donation does not exist.
	ErrDonationNotFound = errors.New("donation not found")

	// ErrInvalidFilter is returned when an admin listing filter names an
	// unknown payment status or donation type.
	ErrInvalidFilter = errors.New("invalid filter")
)
