// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the webhook event log used to audit
// provider deliveries.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-shelter-backend/internal/domain"
)

// RecordWebhookEvent upserts ev by its provider event id. A first delivery
// inserts the row with Deliveries=1; a redelivery increments Deliveries and
// overwrites the outcome fields while keeping the original ReceivedAt.
func RecordWebhookEvent(ctx context.Context, db *gorm.DB, ev *domain.WebhookEvent) error {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	if ev.Deliveries == 0 {
		ev.Deliveries = 1
	}
	set := clause.AssignmentColumns([]string{"type", "transaction_id", "outcome", "detail", "processed_at"})
	set = append(set, clause.Assignment{
		Column: clause.Column{Name: "deliveries"},
		Value:  gorm.Expr("webhook_events.deliveries + 1"),
	})
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: set,
		}).
		Create(ev).Error
}

// GetWebhookEvent fetches an event log entry by provider event id.
func GetWebhookEvent(ctx context.Context, db *gorm.DB, id string) (*domain.WebhookEvent, error) {
	var ev domain.WebhookEvent
	if err := db.WithContext(ctx).Where("id = ?", id).First(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// CountWebhookEvents returns the number of logged events, optionally
// restricted to one event type.
func CountWebhookEvents(ctx context.Context, db *gorm.DB, eventType string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.WebhookEvent{})
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListWebhookEventsPage returns a page of logged events, newest first.
func ListWebhookEventsPage(ctx context.Context, db *gorm.DB, eventType string, offset, limit int) ([]domain.WebhookEvent, error) {
	var out []domain.WebhookEvent
	q := db.WithContext(ctx)
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	err := q.Order("received_at desc").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
