package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/shashiranjanraj/mithai/pkg/auth"
	appctx "github.com/shashiranjanraj/mithai/pkg/ctx"
	"github.com/shashiranjanraj/mithai/pkg/middleware"
	"github.com/shashiranjanraj/mithai/pkg/ratelimit"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

type memStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (s *memStore) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[key]++
	return s.counts[key], nil
}

func TestRecoveryRendersEnvelope(t *testing.T) {
	h := middleware.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", gjson.Get(rec.Body.String(), "message").String())
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestCORS(t *testing.T) {
	h := middleware.CORS(middleware.CORSFromOrigins([]string{"https://shop.example"}))(ok)

	req := httptest.NewRequest(http.MethodOptions, "/api/sweets", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/api/sweets", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitPerUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 15, 0, time.UTC)
	limiter := ratelimit.New(&memStore{}, 2, time.Minute).WithClock(func() time.Time { return now })
	h := middleware.RateLimit(limiter, middleware.ByUser)(ok)

	call := func(userID uint) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, call(1).Code)
	last := call(1)
	require.Equal(t, http.StatusOK, last.Code)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))

	denied := call(1)
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call(2).Code, "other users keep their own budget")
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := ratelimit.New(&memStore{err: errors.New("store down")}, 1, time.Minute)
	h := middleware.RateLimit(limiter, middleware.ByIP)(ok)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestByIP(t *testing.T) {
	t.Cleanup(func() { _ = appctx.TrustProxies(nil) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "ip:192.0.2.1", middleware.ByIP(req), "client cannot pick its own bucket")

	require.NoError(t, appctx.TrustProxies([]string{"192.0.2.1", "10.0.0.0/8"}))
	assert.Equal(t, "ip:203.0.113.7", middleware.ByIP(req))
	assert.Equal(t, "ip:203.0.113.7", middleware.ByUser(req))
}

func TestRotatingForwardedForDoesNotEscapeLimit(t *testing.T) {
	t.Cleanup(func() { _ = appctx.TrustProxies(nil) })
	require.NoError(t, appctx.TrustProxies(nil))

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(&memStore{}, 2, time.Minute).WithClock(func() time.Time { return now })
	h := middleware.RateLimit(limiter, middleware.ByIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 1; i <= 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.4:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestLoggerPassesStatusThrough(t *testing.T) {
	h := middleware.Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
