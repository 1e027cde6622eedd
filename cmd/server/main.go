// Command server runs the shelter donations API: the payment webhook
// receiver, the receipt dispatcher and the optional admin endpoints.
//
// @title                      Shelter Donations API
// @version                    1.0
// @description                Payment webhook receiver, donation records and receipt delivery for the shelter backend.
// @BasePath                   /api
// @securityDefinitions.apikey AdminKey
// @in                         header
// @name                       X-Admin-Key
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-shelter-backend/internal/config"
	httpapi "github.com/tbourn/go-shelter-backend/internal/http"
	"github.com/tbourn/go-shelter-backend/internal/notify"
	"github.com/tbourn/go-shelter-backend/internal/observability"
	"github.com/tbourn/go-shelter-backend/internal/payments"
	"github.com/tbourn/go-shelter-backend/internal/repo"
	"github.com/tbourn/go-shelter-backend/internal/sysutil"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	mailer := notify.NewFromConfig(cfg.Email, &http.Client{Timeout: cfg.Email.SendTimeout})
	if len(mailer.Transports()) == 0 {
		log.Warn().Msg("no email transport configured; receipts will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Error().Msg("STRIPE_WEBHOOK_SECRET is empty; every webhook delivery will be rejected")
	}

	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	httpapi.RegisterRoutes(r, db, httpapi.Deps{
		Mailer:    mailer,
		Customers: payments.NewStripeCustomers(cfg.Stripe.SecretKey, ""),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Strs("email_transports", mailer.Transports()).
			Bool("admin_api", cfg.AdminAPIKey != "").
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped unexpectedly")
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
