// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, admin authentication, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - The payment webhook is never throttled or authenticated by API key;
//     its signature is its authentication
//   - Admin routes exist only when an admin key is configured
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-shelter-backend/docs" // registers the OpenAPI document with swag
	"github.com/tbourn/go-shelter-backend/internal/config"
	"github.com/tbourn/go-shelter-backend/internal/domain"
	"github.com/tbourn/go-shelter-backend/internal/http/handlers"
	"github.com/tbourn/go-shelter-backend/internal/http/middleware"
	"github.com/tbourn/go-shelter-backend/internal/payments"
	"github.com/tbourn/go-shelter-backend/internal/repo"
	"github.com/tbourn/go-shelter-backend/internal/services"
)

// donationRepoShim adapts the repository free functions to the
// services.DonationQueryRepo interface expected by the AdminService.
type donationRepoShim struct{}

// CountDonations proxies repo.CountDonations.
func (donationRepoShim) CountDonations(ctx context.Context, db *gorm.DB, f repo.DonationFilter) (int64, error) {
	return repo.CountDonations(ctx, db, f)
}

// ListDonationsPage proxies repo.ListDonationsPage (pagination support).
func (donationRepoShim) ListDonationsPage(ctx context.Context, db *gorm.DB, f repo.DonationFilter, offset, limit int) ([]domain.Donation, error) {
	return repo.ListDonationsPage(ctx, db, f, offset, limit)
}

// GetDonation proxies repo.GetDonation.
func (donationRepoShim) GetDonation(ctx context.Context, db *gorm.DB, id string) (*domain.Donation, error) {
	return repo.GetDonation(ctx, db, id)
}

// DonationTotals proxies repo.DonationTotals.
func (donationRepoShim) DonationTotals(ctx context.Context, db *gorm.DB) ([]repo.CurrencyTotal, error) {
	return repo.DonationTotals(ctx, db)
}

// CountReceiptsSent proxies repo.CountReceiptsSent.
func (donationRepoShim) CountReceiptsSent(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountReceiptsSent(ctx, db)
}

// CountWebhookEvents proxies repo.CountWebhookEvents.
func (donationRepoShim) CountWebhookEvents(ctx context.Context, db *gorm.DB, eventType string) (int64, error) {
	return repo.CountWebhookEvents(ctx, db, eventType)
}

// ListWebhookEventsPage proxies repo.ListWebhookEventsPage.
func (donationRepoShim) ListWebhookEventsPage(ctx context.Context, db *gorm.DB, eventType string, offset, limit int) ([]domain.WebhookEvent, error) {
	return repo.ListWebhookEventsPage(ctx, db, eventType, offset, limit)
}

// Deps carries the outbound integrations built once at start-up.
type Deps struct {
	// Mailer sends receipts; normally a *notify.Dispatcher.
	Mailer services.Mailer
	// Customers resolves donor emails from provider customer ids. May be nil.
	Customers payments.CustomerLookup
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: health, metrics and docs at the root, the payment webhook and the
// admin API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. ContextLogger: request-scoped logger for handlers and services
//  4. RedactingLogger: access logs with PII and credential scrubbing
//  5. Recovery: capture panics after the loggers
//  6. Body size limiter
//  7. Metrics
//  8. CORS and Security headers
//
// The admin group additionally runs the rate limiter, AdminAuth and
// no-store cache headers.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.ContextLogger())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())

	// Provider events are small; 1 MiB is generous.
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderAdminKey}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/integrations
	donationSvc := services.NewDonationService(db, deps.Mailer, deps.Customers, cfg.Org)
	if cfg.Email.SendTimeout > 0 {
		donationSvc.SendTimeout = cfg.Email.SendTimeout
	}
	webhookSvc := services.NewWebhookService(db, payments.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.Tolerance), donationSvc)

	var adminSvc handlers.AdminService
	if cfg.AdminAPIKey != "" {
		adminSvc = services.NewAdminService(db, donationRepoShim{})
	}
	h := handlers.New(webhookSvc, adminSvc)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.POST("/donations/webhook", h.StripeWebhook)

	if adminSvc != nil {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
		admin := api.Group("/admin",
			rl.Handler(),
			middleware.AdminAuth(cfg.AdminAPIKey),
			middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}),
		)
		{
			admin.GET("/donations", h.ListDonations)
			admin.GET("/donations/summary", h.DonationSummary)
			admin.GET("/donations/:id", h.GetDonation)
			admin.GET("/webhook-events", h.ListWebhookEvents)
		}
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
