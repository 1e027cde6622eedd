// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements API-key authentication for the admin routes. The key
// is accepted from the X-Admin-Key header or as an Authorization bearer
// token and compared in constant time.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderAdminKey carries the admin API key.
const HeaderAdminKey = "X-Admin-Key"

// AdminAuth rejects requests that do not present apiKey.
//
// An empty apiKey rejects everything; callers should not mount admin routes
// at all in that case. Failures respond 401 with the standard error envelope
// and WWW-Authenticate: Bearer.
func AdminAuth(apiKey string) gin.HandlerFunc {
	want := []byte(apiKey)
	return func(c *gin.Context) {
		got := adminKeyFrom(c)
		if len(want) == 0 || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "missing or invalid admin key",
			})
			return
		}
		c.Next()
	}
}

func adminKeyFrom(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader(HeaderAdminKey)); k != "" {
		return k
	}
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
