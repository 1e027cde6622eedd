package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/repo"
)

const testSecret = "whsec_test"

// ---------- test DB + repo shim ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&domain.Donation{}, &domain.WebhookEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Minimal shim implementing services.DonationQueryRepo (like router.go).
type testQueryRepo struct{}

func (testQueryRepo) CountDonations(ctx context.Context, db *gorm.DB, f repo.DonationFilter) (int64, error) {
	return repo.CountDonations(ctx, db, f)
}

func (testQueryRepo) ListDonationsPage(ctx context.Context, db *gorm.DB, f repo.DonationFilter, offset, limit int) ([]domain.Donation, error) {
	return repo.ListDonationsPage(ctx, db, f, offset, limit)
}

func (testQueryRepo) GetDonation(ctx context.Context, db *gorm.DB, id string) (*domain.Donation, error) {
	return repo.GetDonation(ctx, db, id)
}

func (testQueryRepo) DonationTotals(ctx context.Context, db *gorm.DB) ([]repo.CurrencyTotal, error) {
	return repo.DonationTotals(ctx, db)
}

func (testQueryRepo) CountReceiptsSent(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountReceiptsSent(ctx, db)
}

func (testQueryRepo) CountWebhookEvents(ctx context.Context, db *gorm.DB, eventType string) (int64, error) {
	return repo.CountWebhookEvents(ctx, db, eventType)
}

func (testQueryRepo) ListWebhookEventsPage(ctx context.Context, db *gorm.DB, eventType string, offset, limit int) ([]domain.WebhookEvent, error) {
	return repo.ListWebhookEventsPage(ctx, db, eventType, offset, limit)
}

func sign(payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
