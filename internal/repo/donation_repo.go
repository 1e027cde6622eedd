// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Donation
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a donation is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - InsertDonationIfAbsent(ctx, db, d) -> (bool, error)
//     Atomic insert keyed by transaction_id; reports whether this call inserted.
//
//   - ClaimReceipt(ctx, db, transactionID, now) -> (bool, error)
//     Flips receipt_sent false->true; true only for the single caller that flipped it.
//
//   - GetDonation / GetDonationByTransactionID -> *domain.Donation, error
//
//   - CountDonations / ListDonationsPage
//     Filtered, paginated listing ordered by creation time descending.
//
//   - RecordReceiptOutcome(ctx, db, id, transport, errMsg) -> error
//     Stores which transport delivered the receipt, or why delivery failed.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-shelter-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// DonationFilter narrows admin listings. Empty fields match everything.
type DonationFilter struct {
	Status string
	Type   string
	Email  string
}

func (f DonationFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("payment_status = ?", f.Status)
	}
	if f.Type != "" {
		q = q.Where("donation_type = ?", f.Type)
	}
	if e := strings.ToLower(strings.TrimSpace(f.Email)); e != "" {
		q = q.Where("LOWER(donor_email) = ?", e)
	}
	return q
}

// InsertDonationIfAbsent inserts d unless a row with the same TransactionID
// already exists. Every column is written only on insert; an existing row is
// left untouched. The returned bool is true when this call created the row.
//
// ID, CreatedAt and UpdatedAt are filled in when empty. ReceiptSent is always
// inserted as false: only ClaimReceipt may set it.
func InsertDonationIfAbsent(ctx context.Context, db *gorm.DB, d *domain.Donation) (bool, error) {
	now := time.Now().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	d.ReceiptSent = false
	d.ReceiptSentAt = nil

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(d)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimReceipt performs the single conditional update that marks the receipt
// for transactionID as sent. Among any number of concurrent callers exactly
// one observes true; all others (and every later call) observe false.
func ClaimReceipt(ctx context.Context, db *gorm.DB, transactionID string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Donation{}).
		Where("transaction_id = ? AND receipt_sent = ?", transactionID, false).
		Updates(map[string]any{
			"receipt_sent":    true,
			"receipt_sent_at": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetDonationByTransactionID fetches the donation recorded for a provider
// payment id, or ErrNotFound.
func GetDonationByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Donation, error) {
	var d domain.Donation
	err := db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDonation fetches a donation by its primary key, or ErrNotFound.
func GetDonation(ctx context.Context, db *gorm.DB, id string) (*domain.Donation, error) {
	var d domain.Donation
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDonations returns the number of donations matching f.
func CountDonations(ctx context.Context, db *gorm.DB, f DonationFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Donation{})).
		Count(&total).Error
	return total, err
}

// ListDonationsPage returns a page of donations matching f, most recent
// first. Use CountDonations to obtain the total for pagination metadata.
func ListDonationsPage(ctx context.Context, db *gorm.DB, f DonationFilter, offset, limit int) ([]domain.Donation, error) {
	var out []domain.Donation
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecordReceiptOutcome stores the transport that delivered the receipt and
// the delivery error text, if any. It never touches receipt_sent.
// Returns ErrNotFound when no row has the given id.
func RecordReceiptOutcome(ctx context.Context, db *gorm.DB, id, transport, errMsg string) error {
	res := db.WithContext(ctx).
		Model(&domain.Donation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"receipt_transport": transport,
			"receipt_error":     errMsg,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
