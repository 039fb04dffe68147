package middleware

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/helper"
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RateLimitStore counts hits per key within a window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type RateLimitMiddleware struct {
	store    RateLimitStore
	fallback RateLimitStore
	proxies  proxySet
}

// NewRateLimitMiddleware uses fallback whenever store is nil or failing.
func NewRateLimitMiddleware(store RateLimitStore, fallback RateLimitStore, cfg *config.AppConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		store:    store,
		fallback: fallback,
		proxies:  newProxySet(cfg.TrustedProxyCIDRs),
	}
}

// Limit allows limit requests per window for each sender, or for each client
// address on unauthenticated routes.
func (m *RateLimitMiddleware) Limit(keyName string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, ttl, err := m.allow(r.Context(), m.key(r, keyName), limit, window)
			if err != nil {
				slog.Error("Rate limit check failed", "error", err)
				helper.WriteError(w, helper.NewServiceUnavailableError("Rate limiting service unavailable"))
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("X-RateLimit-Remaining", "0")
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			helper.WriteError(w, helper.NewTooManyRequestsError("Rate limit exceeded. Please try again later."))
		})
	}
}

func (m *RateLimitMiddleware) key(r *http.Request, keyName string) string {
	if user := UserFromContext(r.Context()); user != nil {
		return "ratelimit:user:" + keyName + ":" + user.UID
	}
	return "ratelimit:ip:" + keyName + ":" + m.proxies.clientAddr(r)
}

func (m *RateLimitMiddleware) allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if m.store != nil {
		allowed, ttl, err := m.store.Allow(ctx, key, limit, window)
		if err == nil || m.fallback == nil {
			return allowed, ttl, err
		}
		slog.Warn("Rate limit store unavailable, using in-process limiter", "error", err)
	}
	if m.fallback == nil {
		return true, 0, nil
	}
	return m.fallback.Allow(ctx, key, limit, window)
}
