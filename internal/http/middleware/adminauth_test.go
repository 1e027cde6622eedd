package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-auth"); c.Next() })
	r.Use(AdminAuth("s3cret"))
	r.GET("/admin", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"header key", HeaderAdminKey, "s3cret", http.StatusOK},
		{"bearer", "Authorization", "Bearer s3cret", http.StatusOK},
		{"bearer lowercase", "Authorization", "bearer s3cret", http.StatusOK},
		{"wrong key", HeaderAdminKey, "nope", http.StatusUnauthorized},
		{"prefix of key", HeaderAdminKey, "s3c", http.StatusUnauthorized},
		{"basic auth", "Authorization", "Basic czNjcmV0", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusUnauthorized {
				var body map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
					t.Fatalf("json: %v", err)
				}
				if body["code"] != "unauthorized" || body["request_id"] != "rid-auth" {
					t.Fatalf("unexpected body: %v", body)
				}
				if w.Header().Get("WWW-Authenticate") != "Bearer" {
					t.Fatalf("missing WWW-Authenticate")
				}
			}
		})
	}
}

func TestAdminAuth_EmptyKeyRejectsAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminAuth(""))
	r.GET("/admin", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderAdminKey, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}
}
