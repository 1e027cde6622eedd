package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-shelter-backend/internal/config"
	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/notify"
	"github.com/tbourn/go-shelter-backend/internal/payments"
)

const testSecret = "whsec_test"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func sign(payload []byte, ts int64) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventID, eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"created":1700000000,"data":{"object":%s}}`,
		eventID, eventType, object))
}

const succeededObject = `{"id":"pi_1","amount":2500,"currency":"usd",` +
	`"metadata":{"donor_name":"Ada","donor_email":"ada@example.org","donation_type":"monthly"}}`

// spyMailer records every send and returns err when set.
type spyMailer struct {
	mu    sync.Mutex
	calls atomic.Int32
	last  notify.Message
	err   error
	delay time.Duration
}

func (s *spyMailer) Send(ctx context.Context, msg notify.Message) (notify.Receipt, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = msg
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return notify.Receipt{}, ctx.Err()
		}
	}
	if s.err != nil {
		return notify.Receipt{}, s.err
	}
	return notify.Receipt{Transport: "spy", ID: "msg_1"}, nil
}

type stubLookup struct {
	email string
	err   error
	calls int
}

func (s *stubLookup) CustomerEmail(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.email, s.err
}

func newServices(t *testing.T, mailer Mailer, lookup payments.CustomerLookup) (*WebhookService, *DonationService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	ds := NewDonationService(db, mailer, lookup, config.OrgConfig{Name: "Happy Paws"})
	ws := NewWebhookService(db, payments.NewVerifier(testSecret, 0), ds)
	return ws, ds, db
}
