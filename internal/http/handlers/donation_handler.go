// Admin donation HTTP handlers.
//
// This file exposes the read-only admin endpoints:
//   - GET /admin/donations           (list, paginated, filters, ETag support)
//   - GET /admin/donations/summary   (totals per currency)
//   - GET /admin/donations/{id}      (single record)
//   - GET /admin/webhook-events      (delivery log, paginated)
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/repo"
	"github.com/tbourn/go-shelter-backend/internal/services"
)

// ListDonationsResponse wraps a page of donations and pagination information.
type ListDonationsResponse struct {
	Donations  []domain.Donation `json:"donations"`
	Pagination Pagination        `json:"pagination"`
}

// ListWebhookEventsResponse wraps a page of logged deliveries.
type ListWebhookEventsResponse struct {
	Events     []domain.WebhookEvent `json:"events"`
	Pagination Pagination            `json:"pagination"`
}

// ListDonations godoc
// @ID          listDonations
// @Summary     List donations (paginated)
// @Description Returns a page of donations, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
// @Security    AdminKey
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
// @Param       status         query   string  false "Payment status"               Enums(pending, completed, failed, refunded, cancelled)
// @Param       type           query   string  false "Donation type"                Enums(one-time, monthly, quarterly, annual)
// @Param       email          query   string  false "Donor email (case-insensitive)"
//
// @Success     200  {object} handlers.ListDonationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/donations [get]
func (h *Handlers) ListDonations(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	f, err := services.NormalizeFilter(repo.DonationFilter{
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Email:  c.Query("email"),
	})
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status or type filter")
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.adminSvc.(*services.AdminService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.DonationsStats(ctx, db, f)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := donationsETag(f, page, pageSize, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.adminSvc.ListDonations(ctx, f, page, pageSize)
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	if items == nil {
		items = []domain.Donation{}
	}
	ok(c, http.StatusOK, ListDonationsResponse{Donations: items, Pagination: newPagination(page, pageSize, total)})
}

// GetDonation godoc
// @ID          getDonation
// @Summary     Get a donation
// @Tags        Admin
// @Produce     json
// @Security    AdminKey
//
// @Param       id  path  string  true  "Donation ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Donation
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Donation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/donations/{id} [get]
func (h *Handlers) GetDonation(c *gin.Context) {
	d, err := h.adminSvc.GetDonation(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrDonationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "donation not found")
	case err != nil:
		failInternal(c, ErrCodeInternal, err)
	default:
		ok(c, http.StatusOK, d)
	}
}

// DonationSummary godoc
// @ID          donationSummary
// @Summary     Donation totals
// @Description Totals per currency, the number of donations and how many receipts were sent.
// @Tags        Admin
// @Produce     json
// @Security    AdminKey
//
// @Success     200  {object} services.Summary
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/donations/summary [get]
func (h *Handlers) DonationSummary(c *gin.Context) {
	s, err := h.adminSvc.Summary(c.Request.Context())
	if err != nil {
		failInternal(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// ListWebhookEvents godoc
// @ID          listWebhookEvents
// @Summary     List webhook deliveries (paginated)
// @Tags        Admin
// @Produce     json
// @Security    AdminKey
//
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       type       query  string  false "Event type"      example(payment_intent.succeeded)
//
// @Success     200  {object} handlers.ListWebhookEventsResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/webhook-events [get]
func (h *Handlers) ListWebhookEvents(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.adminSvc.ListWebhookEvents(c.Request.Context(), c.Query("type"), page, pageSize)
	if err != nil {
		failInternal(c, ErrCodeListFailed, err)
		return
	}
	if items == nil {
		items = []domain.WebhookEvent{}
	}
	ok(c, http.StatusOK, ListWebhookEventsResponse{Events: items, Pagination: newPagination(page, pageSize, total)})
}

// donationsETag builds a weak ETag from the listing tuple. The filter values
// are user input, so the tuple is hashed to keep the tag a valid token.
func donationsETag(f repo.DonationFilter, page, pageSize int, count, ts int64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%q|%q|%q|%d|%d|%d|%d", f.Status, f.Type, f.Email, page, pageSize, count, ts))
	return `W/"donations-` + hex.EncodeToString(sum[:12]) + `"`
}
