// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints,
// including structured error envelopes and consistent JSON serialization.
// Admin endpoints use ErrorResponse; the webhook endpoint uses
// WebhookErrorResponse, which additionally carries `received:false` as the
// payment provider expects.
//
// Conventions:
//   - All error responses must carry a stable `code`.
//   - `fail()` and `failWebhook()` centralize error logging and formatting,
//     ensuring 5xx responses are logged with request context.
//   - `ok()` writes success responses in a consistent shape across handlers.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "donation not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-shelter-backend/internal/http/middleware"
)

// msgInternal is the only text a 5xx response carries.
const msgInternal = "internal server error"

// ErrorResponse is the standard error envelope returned by admin endpoints
// and by the router's NoRoute/NoMethod fallbacks.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// WebhookErrorResponse is the error envelope of the webhook endpoint.
type WebhookErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"invalid_signature"`
	Error     string `json:"error" example:"signature verification failed"`
	Received  bool   `json:"received" example:"false"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}
	logServerError(c, status, code, msg, nil)
	c.AbortWithStatusJSON(status, resp)
}

// failInternal answers 500 with a fixed message; err only reaches the log.
func failInternal(c *gin.Context, code string, err error) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msgInternal,
	}
	logServerError(c, http.StatusInternalServerError, code, msgInternal, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent error envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failWebhook aborts a webhook delivery with received=false.
func failWebhook(c *gin.Context, status int, code, msg string) {
	resp := WebhookErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Error:     msg,
		Received:  false,
	}
	logServerError(c, status, code, msg, nil)
	c.AbortWithStatusJSON(status, resp)
}

// failWebhookInternal is failWebhook for unexpected errors.
func failWebhookInternal(c *gin.Context, err error) {
	resp := WebhookErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      ErrCodeInternal,
		Error:     msgInternal,
		Received:  false,
	}
	logServerError(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
}

func logServerError(c *gin.Context, status int, code, msg string, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	lg := middleware.LoggerFrom(c)
	lg.Error().
		Err(err).
		Int("status", status).
		Str("code", code).
		Str("message", msg).
		Msg("api error")
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
