package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/borealinsurance/pgi/config"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, "ok") })
	r.GET("/policies/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": c.Param("id")}) })
	return r
}

func TestSecretKeyAuthMiddleware(t *testing.T) {
	conf := &config.Configuration{Server: config.ServerConfig{Secure: true, SecretKey: "s3cret"}}
	r := newRouter(SecretKeyAuthMiddleware(conf))

	tests := []struct {
		name string
		path string
		key  string
		code int
	}{
		{"health is open", "/", "", http.StatusOK},
		{"missing key", "/policies/pol_1", "", http.StatusUnauthorized},
		{"wrong key", "/policies/pol_1", "nope", http.StatusUnauthorized},
		{"valid key", "/policies/pol_1", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(KeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestSecretKeyAuthMiddleware_NotConfigured(t *testing.T) {
	r := newRouter(SecretKeyAuthMiddleware(&config.Configuration{Server: config.ServerConfig{Secure: true}}))

	req := httptest.NewRequest(http.MethodGet, "/policies/pol_1", nil)
	req.Header.Set(KeyHeader, "anything")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	rps := 1.0
	burst := 1
	r := newRouter(RateLimitMiddleware(&config.Configuration{RateLimit: config.RateLimitConfig{RequestsPerSecond: &rps, Burst: &burst}}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/policies/pol_1", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	r := newRouter(RateLimitMiddleware(&config.Configuration{}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
