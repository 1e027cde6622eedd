package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/repo"
)

type fakeQueryRepo struct {
	gotFilter repo.DonationFilter
	gotOffset int
	gotLimit  int
	donations []domain.Donation
	events    []domain.WebhookEvent
	totals    []repo.CurrencyTotal
	countErr  error
	getErr    error
	receipts  int64
	eventType string
}

func (f *fakeQueryRepo) CountDonations(_ context.Context, _ *gorm.DB, flt repo.DonationFilter) (int64, error) {
	f.gotFilter = flt
	return int64(len(f.donations)), f.countErr
}

func (f *fakeQueryRepo) ListDonationsPage(_ context.Context, _ *gorm.DB, _ repo.DonationFilter, offset, limit int) ([]domain.Donation, error) {
	f.gotOffset, f.gotLimit = offset, limit
	return f.donations, nil
}

func (f *fakeQueryRepo) GetDonation(_ context.Context, _ *gorm.DB, id string) (*domain.Donation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.Donation{ID: id}, nil
}

func (f *fakeQueryRepo) DonationTotals(context.Context, *gorm.DB) ([]repo.CurrencyTotal, error) {
	return f.totals, nil
}

func (f *fakeQueryRepo) CountReceiptsSent(context.Context, *gorm.DB) (int64, error) {
	return f.receipts, nil
}

func (f *fakeQueryRepo) CountWebhookEvents(_ context.Context, _ *gorm.DB, eventType string) (int64, error) {
	f.eventType = eventType
	return int64(len(f.events)), nil
}

func (f *fakeQueryRepo) ListWebhookEventsPage(_ context.Context, _ *gorm.DB, _ string, offset, limit int) ([]domain.WebhookEvent, error) {
	f.gotOffset, f.gotLimit = offset, limit
	return f.events, nil
}

func TestAdmin_ListDonations_NormalizesFilterAndPages(t *testing.T) {
	fr := &fakeQueryRepo{donations: []domain.Donation{{ID: "a"}, {ID: "b"}}}
	svc := NewAdminService(nil, fr)

	items, total, err := svc.ListDonations(context.Background(),
		repo.DonationFilter{Status: " Completed ", Type: "Yearly", Email: " a@b.com "}, 3, 10)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(items) != 2 || total != 2 {
		t.Fatalf("items=%d total=%d", len(items), total)
	}
	want := repo.DonationFilter{Status: "completed", Type: domain.DonationAnnual, Email: "a@b.com"}
	if fr.gotFilter != want {
		t.Fatalf("filter = %+v, want %+v", fr.gotFilter, want)
	}
	if fr.gotOffset != 20 || fr.gotLimit != 10 {
		t.Fatalf("offset=%d limit=%d", fr.gotOffset, fr.gotLimit)
	}
}

func TestAdmin_ListDonations_InvalidFilter(t *testing.T) {
	svc := NewAdminService(nil, &fakeQueryRepo{})
	for _, f := range []repo.DonationFilter{{Status: "lost"}, {Type: "weekly"}} {
		if _, _, err := svc.ListDonations(context.Background(), f, 1, 20); !errors.Is(err, ErrInvalidFilter) {
			t.Fatalf("filter %+v: err = %v", f, err)
		}
	}
	if _, err := NormalizeFilter(repo.DonationFilter{Type: "one_time"}); err != nil {
		t.Fatalf("one_time rejected: %v", err)
	}
}

func TestAdmin_GetDonation(t *testing.T) {
	svc := NewAdminService(nil, &fakeQueryRepo{getErr: repo.ErrNotFound})
	if _, err := svc.GetDonation(context.Background(), "x"); !errors.Is(err, ErrDonationNotFound) {
		t.Fatalf("err = %v", err)
	}

	boom := errors.New("boom")
	svc = NewAdminService(nil, &fakeQueryRepo{getErr: boom})
	if _, err := svc.GetDonation(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	svc = NewAdminService(nil, &fakeQueryRepo{})
	d, err := svc.GetDonation(context.Background(), "x")
	if err != nil || d.ID != "x" {
		t.Fatalf("d=%+v err=%v", d, err)
	}
}

func TestAdmin_Summary(t *testing.T) {
	fr := &fakeQueryRepo{
		donations: []domain.Donation{{ID: "a"}},
		receipts:  1,
		totals:    []repo.CurrencyTotal{{Currency: "USD", Donations: 1, Amount: decimal.RequireFromString("25")}},
	}
	s, err := NewAdminService(nil, fr).Summary(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if s.Donations != 1 || s.ReceiptsSent != 1 || len(s.Totals) != 1 {
		t.Fatalf("summary = %+v", s)
	}

	empty, err := NewAdminService(nil, &fakeQueryRepo{}).Summary(context.Background())
	if err != nil || empty.Totals == nil {
		t.Fatalf("empty summary totals should be non-nil: %+v %v", empty, err)
	}
}

func TestAdmin_CountErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	svc := NewAdminService(nil, &fakeQueryRepo{countErr: boom})
	if _, _, err := svc.ListDonations(context.Background(), repo.DonationFilter{}, 1, 20); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestAdmin_ListWebhookEvents(t *testing.T) {
	fr := &fakeQueryRepo{events: []domain.WebhookEvent{{ID: "evt_1"}}}
	items, total, err := NewAdminService(nil, fr).ListWebhookEvents(context.Background(), " charge.refunded ", 0, 0)
	if err != nil || len(items) != 1 || total != 1 {
		t.Fatalf("items=%v total=%d err=%v", items, total, err)
	}
	if fr.eventType != "charge.refunded" || fr.gotOffset != 0 || fr.gotLimit != 20 {
		t.Fatalf("type=%q offset=%d limit=%d", fr.eventType, fr.gotOffset, fr.gotLimit)
	}
}
