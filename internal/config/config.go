// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database selection, payment-provider and email transport settings,
// rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Email transport names accepted by EMAIL_PRIMARY_TRANSPORT.
const (
	TransportResend = "resend"
	TransportSMTP   = "smtp"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-shelter-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StripeConfig holds payment-provider credentials.
//
// An empty WebhookSecret is not a load error: the webhook endpoint reports it
// per request so the misconfiguration is visible to operators and the
// provider alike. An empty SecretKey disables the customer email lookup.
type StripeConfig struct {
	WebhookSecret string        // STRIPE_WEBHOOK_SECRET
	SecretKey     string        // STRIPE_SECRET_KEY
	Tolerance     time.Duration // STRIPE_WEBHOOK_TOLERANCE
}

// ResendConfig configures the transactional email API transport.
type ResendConfig struct {
	APIKey  string // RESEND_API_KEY; empty disables the transport
	BaseURL string // RESEND_BASE_URL
}

// SMTPConfig configures the SMTP transport.
type SMTPConfig struct {
	Host     string // SMTP_HOST; empty disables the transport
	Port     int    // SMTP_PORT
	Username string // SMTP_USERNAME
	Password string // SMTP_PASSWORD
}

// EmailConfig groups the receipt email settings.
type EmailConfig struct {
	Primary     string        // EMAIL_PRIMARY_TRANSPORT: resend|smtp
	From        string        // EMAIL_FROM
	SendTimeout time.Duration // EMAIL_SEND_TIMEOUT
	Resend      ResendConfig
	SMTP        SMTPConfig
}

// OrgConfig carries the branding printed on donation receipts.
type OrgConfig struct {
	Name  string // ORG_NAME
	TaxID string // ORG_TAX_ID (optional)
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 30s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Database
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// Rate limiting (admin API)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Donations
	Stripe      StripeConfig
	Email       EmailConfig
	Org         OrgConfig
	AdminAPIKey string // ADMIN_API_KEY; admin routes are mounted only when set

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Database
		DBDriver:    strings.ToLower(strings.TrimSpace(getenv("DB_DRIVER", DBDriverSQLite))),
		DBPath:      getenv("DB_PATH", "shelter.db"),
		DatabaseURL: strings.TrimSpace(getenv("DATABASE_URL", "")),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Donations
		Stripe: StripeConfig{
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			Tolerance:     getdur("STRIPE_WEBHOOK_TOLERANCE", 300*time.Second),
		},
		Email: EmailConfig{
			Primary:     strings.ToLower(strings.TrimSpace(getenv("EMAIL_PRIMARY_TRANSPORT", TransportResend))),
			From:        strings.TrimSpace(getenv("EMAIL_FROM", "")),
			SendTimeout: getdur("EMAIL_SEND_TIMEOUT", 10*time.Second),
			Resend: ResendConfig{
				APIKey:  strings.TrimSpace(getenv("RESEND_API_KEY", "")),
				BaseURL: strings.TrimRight(getenv("RESEND_BASE_URL", "https://api.resend.com"), "/"),
			},
			SMTP: SMTPConfig{
				Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
				Port:     getint("SMTP_PORT", 587),
				Username: strings.TrimSpace(getenv("SMTP_USERNAME", "")),
				Password: getenv("SMTP_PASSWORD", ""),
			},
		},
		Org: OrgConfig{
			Name:  getenv("ORG_NAME", "Animal Shelter"),
			TaxID: strings.TrimSpace(getenv("ORG_TAX_ID", "")),
		},
		AdminAPIKey: strings.TrimSpace(getenv("ADMIN_API_KEY", "")),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-shelter-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" || cfg.DBDriver == "pg" {
		cfg.DBDriver = DBDriverPostgres
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case DBDriverSQLite:
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case DBDriverPostgres:
		if cfg.DatabaseURL == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.Stripe.Tolerance <= 0 {
		return cfg, errors.New("STRIPE_WEBHOOK_TOLERANCE must be > 0")
	}
	switch cfg.Email.Primary {
	case TransportResend, TransportSMTP:
	default:
		return cfg, errors.New("EMAIL_PRIMARY_TRANSPORT must be one of: resend, smtp")
	}
	if cfg.Email.SendTimeout <= 0 {
		return cfg, errors.New("EMAIL_SEND_TIMEOUT must be > 0")
	}
	if cfg.Email.SMTP.Port <= 0 || cfg.Email.SMTP.Port > 65535 {
		return cfg, errors.New("SMTP_PORT must be in [1,65535]")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
