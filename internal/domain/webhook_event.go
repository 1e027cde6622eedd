package domain

import "time"

// Webhook event outcomes recorded in the event log.
const (
	OutcomeSuccess     = "success"
	OutcomeDuplicate   = "duplicate_processed"
	OutcomeEmailFailed = "saved_but_email_failed"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
	OutcomeLogged      = "payment_failed_logged"
	OutcomeRefundAcked = "refund_acknowledged"
	OutcomeReceived    = "received"
)

// WebhookEvent is an audit entry for a verified provider delivery, keyed by
// the provider event id. Redeliveries bump Deliveries and overwrite Outcome.
// It is not used for deduplication; the donation receipt claim is.
type WebhookEvent struct {
	ID            string     `json:"id"             gorm:"type:varchar(255);primaryKey"`
	Type          string     `json:"type"           gorm:"type:varchar(128);not null;index:idx_webhook_events_type"`
	TransactionID string     `json:"transaction_id,omitempty" gorm:"type:varchar(255);index:idx_webhook_events_tx"`
	Deliveries    int        `json:"deliveries"     gorm:"not null;default:1"`
	Outcome       string     `json:"outcome"        gorm:"type:varchar(32);not null"`
	Detail        string     `json:"detail,omitempty" gorm:"type:text"`
	ReceivedAt    time.Time  `json:"received_at"    gorm:"not null;index:idx_webhook_events_received"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// TableName implements the GORM tabler interface.
func (WebhookEvent) TableName() string { return "webhook_events" }
