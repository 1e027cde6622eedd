package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-shelter-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// One connection serialises writers; the in-memory cache is shared anyway.
		sqlDB.SetMaxOpenConns(1)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func sampleDonation(tx string) *domain.Donation {
	return &domain.Donation{
		TransactionID: tx,
		DonorName:     "A",
		DonorEmail:    "a@b.com",
		Amount:        decimal.RequireFromString("25.00"),
		Currency:      "USD",
		DonationType:  domain.DonationOneTime,
		PaymentStatus: domain.PaymentCompleted,
	}
}

func TestInsertDonationIfAbsent_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := InsertDonationIfAbsent(context.Background(), db, sampleDonation("pi_x")); err == nil {
		t.Fatalf("expected error inserting without table")
	}
}

func TestInsertDonationIfAbsent_InsertOnlySemantics(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	ctx := context.Background()

	first := sampleDonation("pi_1")
	inserted, err := InsertDonationIfAbsent(ctx, db, first)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("ID/CreatedAt not populated: %+v", first)
	}

	second := sampleDonation("pi_1")
	second.DonorName = "Someone Else"
	second.Amount = decimal.RequireFromString("99")
	inserted, err = InsertDonationIfAbsent(ctx, db, second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("second insert must not report inserted")
	}

	got, err := GetDonationByTransactionID(ctx, db, "pi_1")
	if err != nil {
		t.Fatalf("GetDonationByTransactionID: %v", err)
	}
	if got.ID != first.ID || got.DonorName != "A" || !got.Amount.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("existing row was modified: %+v", got)
	}

	var n int64
	db.Model(&domain.Donation{}).Where("transaction_id = ?", "pi_1").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one row, got %d", n)
	}
}

func TestInsertDonationIfAbsent_ForcesReceiptUnsent(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	d := sampleDonation("pi_2")
	now := time.Now().UTC()
	d.ReceiptSent = true
	d.ReceiptSentAt = &now
	if _, err := InsertDonationIfAbsent(context.Background(), db, d); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, _ := GetDonation(context.Background(), db, d.ID)
	if got.ReceiptSent || got.ReceiptSentAt != nil {
		t.Fatalf("receipt flag must start false, got %+v", got)
	}
}

func TestClaimReceipt_OnlyOnce(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	ctx := context.Background()
	d := sampleDonation("pi_3")
	if _, err := InsertDonationIfAbsent(ctx, db, d); err != nil {
		t.Fatalf("insert: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	won, err := ClaimReceipt(ctx, db, "pi_3", now)
	if err != nil || !won {
		t.Fatalf("first claim: won=%v err=%v", won, err)
	}
	won, err = ClaimReceipt(ctx, db, "pi_3", now.Add(time.Second))
	if err != nil || won {
		t.Fatalf("second claim must lose: won=%v err=%v", won, err)
	}

	got, _ := GetDonation(ctx, db, d.ID)
	if !got.ReceiptSent || got.ReceiptSentAt == nil || !got.ReceiptSentAt.Equal(now) {
		t.Fatalf("claim state unexpected: %+v", got)
	}
}

func TestClaimReceipt_UnknownTransaction(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	won, err := ClaimReceipt(context.Background(), db, "pi_missing", time.Now())
	if err != nil || won {
		t.Fatalf("claim on missing row: won=%v err=%v", won, err)
	}
}

func TestClaimReceipt_ConcurrentSingleWinner(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	ctx := context.Background()
	if _, err := InsertDonationIfAbsent(ctx, db, sampleDonation("pi_4")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := ClaimReceipt(ctx, db, "pi_4", time.Now().UTC())
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestGetDonation_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	_, err := GetDonation(context.Background(), db, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = GetDonationByTransactionID(context.Background(), db, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDonationsPage_FilterOrderAndCount(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	seed := []struct {
		tx, typ, email string
		at             time.Time
	}{
		{"pi_a", domain.DonationOneTime, "a@b.com", base},
		{"pi_b", domain.DonationMonthly, "x@y.com", base.Add(time.Hour)},
		{"pi_c", domain.DonationMonthly, "A@B.com", base.Add(2 * time.Hour)},
	}
	for _, s := range seed {
		d := sampleDonation(s.tx)
		d.DonationType = s.typ
		d.DonorEmail = s.email
		d.CreatedAt = s.at
		if _, err := InsertDonationIfAbsent(ctx, db, d); err != nil {
			t.Fatalf("seed %s: %v", s.tx, err)
		}
	}

	all, err := ListDonationsPage(ctx, db, DonationFilter{}, 0, 10)
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: len=%d err=%v", len(all), err)
	}
	if all[0].TransactionID != "pi_c" || all[2].TransactionID != "pi_a" {
		t.Fatalf("expected newest first, got %s..%s", all[0].TransactionID, all[2].TransactionID)
	}

	monthly, _ := ListDonationsPage(ctx, db, DonationFilter{Type: domain.DonationMonthly}, 0, 10)
	if len(monthly) != 2 {
		t.Fatalf("type filter: got %d", len(monthly))
	}

	byEmail, _ := CountDonations(ctx, db, DonationFilter{Email: " a@b.COM "})
	if byEmail != 2 {
		t.Fatalf("email filter should be case-insensitive, got %d", byEmail)
	}

	page2, _ := ListDonationsPage(ctx, db, DonationFilter{}, 1, 1)
	if len(page2) != 1 || page2[0].TransactionID != "pi_b" {
		t.Fatalf("offset/limit unexpected: %+v", page2)
	}

	none, _ := CountDonations(ctx, db, DonationFilter{Status: domain.PaymentRefunded})
	if none != 0 {
		t.Fatalf("status filter: expected 0, got %d", none)
	}
}

func TestRecordReceiptOutcome(t *testing.T) {
	db := newTestDB(t, &domain.Donation{})
	ctx := context.Background()
	d := sampleDonation("pi_5")
	if _, err := InsertDonationIfAbsent(ctx, db, d); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := RecordReceiptOutcome(ctx, db, d.ID, "smtp", "resend: 500"); err != nil {
		t.Fatalf("RecordReceiptOutcome: %v", err)
	}
	got, _ := GetDonation(ctx, db, d.ID)
	if got.ReceiptTransport != "smtp" || got.ReceiptError != "resend: 500" || got.ReceiptSent {
		t.Fatalf("unexpected outcome fields: %+v", got)
	}
	if err := RecordReceiptOutcome(ctx, db, "missing", "smtp", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
