// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// RedactingLogger is the access log. It never reads bodies: webhook payloads
// carry donor names and addresses, so only request metadata is logged, and
// even that is scrubbed. Payment signatures and the admin key are masked
// outright.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names (case-insensitive) whose values are
// replaced with "[REDACTED]" on top of defaultMaskedHeaders.
type RedactOptions struct {
	MaskHeaders []string
}

// defaultMaskedHeaders are credentials that are never logged, even partially.
var defaultMaskedHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"Stripe-Signature",
	HeaderAdminKey,
}

type scrubRule struct {
	re    *regexp.Regexp
	label string
}

// scrubRules run in order. UUIDs go before phone numbers, whose digit
// pattern would otherwise eat UUID segments.
var scrubRules = []scrubRule{
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\bcus_[A-Za-z0-9]{6,}\b`), "[REDACTED:customer]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

func scrubText(s string) string {
	if s == "" {
		return s
	}
	for _, r := range scrubRules {
		s = r.re.ReplaceAllString(s, r.label)
	}
	return s
}

// headerMask is a lower-cased set of header names to mask.
type headerMask map[string]struct{}

func newHeaderMask(extra []string) headerMask {
	m := make(headerMask, len(defaultMaskedHeaders)+len(extra))
	for _, h := range append(append([]string{}, defaultMaskedHeaders...), extra...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = struct{}{}
		}
	}
	return m
}

// apply flattens h into a loggable map, masking or scrubbing each value.
func (m headerMask) apply(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, masked := m[strings.ToLower(k)]; masked {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = scrubText(strings.Join(vv, ", "))
	}
	return out
}

func accessLogEvent(status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	default:
		return log.Info()
	}
}

// RedactingLogger returns a Gin middleware that writes one "http_request"
// line per request: route pattern, scrubbed and truncated query, scrubbed
// headers, status, size and latency. 4xx log at warn, 5xx at error.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := newHeaderMask(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()
		query := truncate(scrubText(c.Request.URL.RawQuery), maxQueryLogLength)
		headers := mask.apply(c.Request.Header)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}
		status := c.Writer.Status()

		accessLogEvent(status).
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
