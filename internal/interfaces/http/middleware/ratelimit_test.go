package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/shifat71/350/pkg/errors"
)

type fakeLimiter struct {
	allowed bool
	err     error

	gotKey   string
	gotLimit int
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	f.gotKey = key
	f.gotLimit = limit
	return f.allowed, f.err
}

func rateLimitTestRouter(cfg RateLimitConfig, limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(cfg, limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRateLimitAllows(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	r := rateLimitTestRouter(RateLimitConfig{Enabled: true, RequestsPerMinute: 60}, limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 60, limiter.gotLimit)
	assert.Contains(t, limiter.gotKey, "ratelimit:")
}

func TestRateLimitRejects(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := rateLimitTestRouter(RateLimitConfig{Enabled: true}, limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(apperrors.CodeTooManyRequests), body["code"])
}

func TestRateLimitLimiterFailureLetsThrough(t *testing.T) {
	limiter := &fakeLimiter{err: assert.AnError}
	r := rateLimitTestRouter(RateLimitConfig{Enabled: true}, limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	limiter := &fakeLimiter{allowed: false}
	r := rateLimitTestRouter(RateLimitConfig{Enabled: false}, limiter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, limiter.gotKey)
}
