package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ekkohq/ekko/internal/config"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthDevelopmentMode(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.SecurityMode = "development"

	handler := RequireAuth(okHandler(), cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "development mode must not require a token")
}

func TestRequireAuthProductionMode(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.SecurityMode = "production"
	cfg.Security.APIToken = "secret-token"

	handler := RequireAuth(okHandler(), cfg)

	// No token
	req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong token
	req = httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct token
	req = httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthProductionWithoutConfiguredToken(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.SecurityMode = "production"

	handler := RequireAuth(okHandler(), cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code,
		"missing server token must reject all requests, not allow all")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1.0, 2)
	handler := RateLimitMiddleware(okHandler(), rl)

	allowed := 0
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}

	assert.Equal(t, 2, allowed, "burst of 2 then rejections")
}
