// Package services – AdminService
//
// AdminService backs the read-only admin API: paginated donation listings
// with filters, single-record lookup, per-currency totals, and the webhook
// event log. It never modifies donation records.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DonationQueryRepo abstracts the read queries AdminService needs.
type DonationQueryRepo interface {
	CountDonations(ctx context.Context, db *gorm.DB, f repo.DonationFilter) (int64, error)
	ListDonationsPage(ctx context.Context, db *gorm.DB, f repo.DonationFilter, offset, limit int) ([]domain.Donation, error)
	GetDonation(ctx context.Context, db *gorm.DB, id string) (*domain.Donation, error)
	DonationTotals(ctx context.Context, db *gorm.DB) ([]repo.CurrencyTotal, error)
	CountReceiptsSent(ctx context.Context, db *gorm.DB) (int64, error)
	CountWebhookEvents(ctx context.Context, db *gorm.DB, eventType string) (int64, error)
	ListWebhookEventsPage(ctx context.Context, db *gorm.DB, eventType string, offset, limit int) ([]domain.WebhookEvent, error)
}

// AdminService provides admin queries over donations and webhook events.
type AdminService struct {
	DB   *gorm.DB
	Repo DonationQueryRepo
}

// NewAdminService constructs an AdminService.
func NewAdminService(db *gorm.DB, r DonationQueryRepo) *AdminService {
	return &AdminService{DB: db, Repo: r}
}

// Summary aggregates donation totals.
type Summary struct {
	Donations    int64                `json:"donations"`
	ReceiptsSent int64                `json:"receipts_sent"`
	Totals       []repo.CurrencyTotal `json:"totals"`
}

// NormalizeFilter validates and canonicalizes an admin listing filter.
func NormalizeFilter(f repo.DonationFilter) (repo.DonationFilter, error) {
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	f.Email = strings.TrimSpace(f.Email)
	if f.Status != "" && !domain.ValidPaymentStatus(f.Status) {
		return f, ErrInvalidFilter
	}
	if t := strings.TrimSpace(f.Type); t != "" {
		f.Type = domain.NormalizeDonationType(t)
		if f.Type == domain.DonationOneTime && !isOneTimeAlias(t) {
			return f, ErrInvalidFilter
		}
	}
	return f, nil
}

func isOneTimeAlias(s string) bool {
	switch strings.ToLower(strings.NewReplacer("_", "-", " ", "-").Replace(s)) {
	case "one-time", "onetime", "once":
		return true
	}
	return false
}

// ListDonations returns one page of donations matching f plus the total.
func (s *AdminService) ListDonations(ctx context.Context, f repo.DonationFilter, page, pageSize int) ([]domain.Donation, int64, error) {
	tr := otel.Tracer("services/AdminService")
	ctx, span := tr.Start(ctx, "ListDonations",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	f, err := NormalizeFilter(f)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total, err := s.Repo.CountDonations(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.Repo.ListDonationsPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetDonation returns one donation by id or ErrDonationNotFound.
func (s *AdminService) GetDonation(ctx context.Context, id string) (*domain.Donation, error) {
	d, err := s.Repo.GetDonation(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrDonationNotFound
	}
	return d, err
}

// Summary returns totals per currency, the donation count and receipts sent.
func (s *AdminService) Summary(ctx context.Context) (*Summary, error) {
	tr := otel.Tracer("services/AdminService")
	ctx, span := tr.Start(ctx, "Summary")
	defer span.End()

	totals, err := s.Repo.DonationTotals(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	n, err := s.Repo.CountDonations(ctx, s.DB, repo.DonationFilter{})
	if err != nil {
		return nil, err
	}
	sent, err := s.Repo.CountReceiptsSent(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if totals == nil {
		totals = []repo.CurrencyTotal{}
	}
	return &Summary{Donations: n, ReceiptsSent: sent, Totals: totals}, nil
}

// ListWebhookEvents returns one page of the event log plus the total.
func (s *AdminService) ListWebhookEvents(ctx context.Context, eventType string, page, pageSize int) ([]domain.WebhookEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	eventType = strings.TrimSpace(eventType)
	total, err := s.Repo.CountWebhookEvents(ctx, s.DB, eventType)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.Repo.ListWebhookEventsPage(ctx, s.DB, eventType, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
