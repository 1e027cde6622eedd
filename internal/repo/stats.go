// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) and the admin summary.
package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-shelter-backend/internal/domain"
)

// CurrencyTotal aggregates donations recorded in one currency.
type CurrencyTotal struct {
	Currency  string          `json:"currency"`
	Donations int64           `json:"donations"`
	Amount    decimal.Decimal `json:"amount"`
}

// DonationsStats returns aggregate metadata for donations matching f: the
// total number of rows and the maximum UpdatedAt among those rows.
//
// When nothing matches, the returned count is 0 and maxUpdatedAt is nil.
func DonationsStats(ctx context.Context, db *gorm.DB, f DonationFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.Donation{}))

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// DonationTotals sums donations per currency, ordered by currency code.
func DonationTotals(ctx context.Context, db *gorm.DB) ([]CurrencyTotal, error) {
	var out []CurrencyTotal
	err := db.WithContext(ctx).
		Model(&domain.Donation{}).
		Select("currency, COUNT(*) AS donations, SUM(amount) AS amount").
		Group("currency").
		Order("currency").
		Scan(&out).Error
	return out, err
}

// CountReceiptsSent returns how many donations have had their receipt claimed.
func CountReceiptsSent(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Donation{}).
		Where("receipt_sent = ?", true).
		Count(&n).Error
	return n, err
}
