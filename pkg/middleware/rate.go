// Package middleware provides the HTTP middleware stack.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/ctx"
	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/metrics"
	"github.com/shashiranjanraj/mithai/pkg/ratelimit"
	"github.com/shashiranjanraj/mithai/pkg/response"
)

// KeyFunc names the subject a request is counted against.
type KeyFunc func(r *http.Request) string

// ByIP counts requests per client address.
func ByIP(r *http.Request) string {
	return "ip:" + ctx.ClientIP(r)
}

// ByUser counts requests per authenticated user, falling back to the client
// address when the gate has not run.
func ByUser(r *http.Request) string {
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		return "user:" + strconv.FormatUint(uint64(id.UserID), 10)
	}
	return ByIP(r)
}

// RateLimit rejects requests over the limiter's budget with 429. A store
// failure is logged and the request is let through.
//
//	api := r.Group("/api", gate.Authenticate, middleware.RateLimit(limiter, middleware.ByUser))
func RateLimit(l *ratelimit.Limiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), key(r))
			if err != nil {
				logger.WithCtx(r.Context()).Warn("rate limit store unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				metrics.RateLimited.Inc()
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(res.ResetAt)))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(reset time.Time) int {
	secs := int(time.Until(reset).Seconds()) + 1
	if secs < 1 {
		return 1
	}
	return secs
}
