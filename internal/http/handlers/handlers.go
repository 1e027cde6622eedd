// Package handlers exposes the HTTP endpoints of the donations backend.
//
// Handlers are transport-thin: they read input, call application services,
// and translate results and sentinel errors into HTTP responses.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/repo"
	"github.com/tbourn/go-shelter-backend/internal/services"
	"github.com/tbourn/go-shelter-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// WebhookService verifies and routes payment provider deliveries.
type WebhookService interface {
	// Handle authenticates payload with the signature header and processes it.
	Handle(ctx context.Context, payload []byte, sigHeader string) (*services.WebhookResult, error)
}

// AdminService defines the read-only admin queries.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AdminService interface {
	ListDonations(ctx context.Context, f repo.DonationFilter, page, pageSize int) ([]domain.Donation, int64, error)
	GetDonation(ctx context.Context, id string) (*domain.Donation, error)
	Summary(ctx context.Context) (*services.Summary, error)
	ListWebhookEvents(ctx context.Context, eventType string, page, pageSize int) ([]domain.WebhookEvent, int64, error)
}

//
// Handler wiring
//

// Handlers groups the webhook and admin endpoints.
type Handlers struct {
	webhookSvc WebhookService
	adminSvc   AdminService
}

// New constructs a Handlers instance. adminSvc may be nil when the admin
// API is disabled.
func New(webhookSvc WebhookService, adminSvc AdminService) *Handlers {
	return &Handlers{webhookSvc: webhookSvc, adminSvc: adminSvc}
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}
