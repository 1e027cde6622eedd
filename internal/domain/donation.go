// Package domain defines the persistence models for donations and the
// payment-provider webhook log. These types are mapped with GORM and are
// shared across the repository and service layers.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Donation types accepted from checkout metadata.
const (
	DonationOneTime   = "one-time"
	DonationMonthly   = "monthly"
	DonationQuarterly = "quarterly"
	DonationAnnual    = "annual"
)

// Payment statuses a donation record can carry.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
	PaymentCancelled = "cancelled"
)

// AnonymousDonor is stored when checkout metadata carries no donor name.
const AnonymousDonor = "Anonymous"

// Donation is a single successful payment recorded from the payment
// provider. TransactionID is the provider's payment id and the only
// deduplication key: at most one row exists per TransactionID, and
// ReceiptSent moves from false to true at most once.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - TransactionID: provider payment id (unique, never updated).
//   - Amount: major units, scaled by the currency's ISO-4217 exponent.
//   - Currency: ISO-4217 code, upper-case.
//   - ReceiptSent / ReceiptSentAt: set once by the receipt claim.
//   - ReceiptTransport / ReceiptError: outcome of the receipt dispatch.
type Donation struct {
	ID               string          `json:"id"                 gorm:"type:char(36);primaryKey"`
	TransactionID    string          `json:"transaction_id"     gorm:"type:varchar(255);not null;uniqueIndex:ux_donations_transaction"`
	DonorName        string          `json:"donor_name"         gorm:"type:varchar(255);not null"`
	DonorEmail       string          `json:"donor_email"        gorm:"type:varchar(320);not null;index:idx_donations_email"`
	Amount           decimal.Decimal `json:"amount"             gorm:"type:numeric(18,3);not null"`
	Currency         string          `json:"currency"           gorm:"type:varchar(3);not null"`
	DonationType     string          `json:"donation_type"      gorm:"type:varchar(16);not null;default:'one-time';index:idx_donations_type"`
	PaymentStatus    string          `json:"payment_status"     gorm:"type:varchar(16);not null;default:'pending';index:idx_donations_status"`
	IsEmergency      bool            `json:"is_emergency"       gorm:"not null;default:false"`
	StripeCustomerID string          `json:"stripe_customer_id,omitempty" gorm:"type:varchar(255)"`
	ReceiptSent      bool            `json:"receipt_sent"       gorm:"not null;default:false"`
	ReceiptSentAt    *time.Time      `json:"receipt_sent_at,omitempty"`
	ReceiptTransport string          `json:"receipt_transport,omitempty" gorm:"type:varchar(16)"`
	ReceiptError     string          `json:"receipt_error,omitempty"     gorm:"type:text"`
	CreatedAt        time.Time       `json:"created_at"         gorm:"index:idx_donations_created"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Donation.
func (Donation) TableName() string { return "donations" }

// NormalizeDonationType maps free-form checkout metadata onto one of the
// supported donation types. Unknown or empty input yields DonationOneTime.
func NormalizeDonationType(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("_", "-", " ", "-").Replace(v)
	switch v {
	case DonationMonthly:
		return DonationMonthly
	case DonationQuarterly:
		return DonationQuarterly
	case DonationAnnual, "yearly":
		return DonationAnnual
	default:
		return DonationOneTime
	}
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded, PaymentCancelled:
		return true
	}
	return false
}
