package middleware

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/model"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAddr(t *testing.T) {
	proxies := newProxySet([]string{"10.0.0.0/8", "not-a-cidr"})
	require.Len(t, proxies, 1)

	cases := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted remote ignores headers", "198.51.100.20:1234", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "198.51.100.20"},
		{"trusted proxy uses right-most untrusted", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2, 198.51.100.10"}, "198.51.100.10"},
		{"trusted proxy skips trusted chain", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.10, 10.1.1.1"}, "203.0.113.10"},
		{"trusted proxy falls back to X-Real-IP", "10.0.0.1:1234", map[string]string{"X-Real-IP": "198.51.100.11"}, "198.51.100.11"},
		{"trusted chain only returns left-most", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "10.2.2.2, 10.1.1.1"}, "10.2.2.2"},
		{"garbage hops are skipped", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "nope, 198.51.100.12, junk"}, "198.51.100.12"},
		{"trusted X-Real-IP is ignored", "10.0.0.1:1234", map[string]string{"X-Real-IP": "10.9.9.9"}, "10.0.0.1"},
		{"ipv4 mapped remote", "[::ffff:198.51.100.30]:80", nil, "198.51.100.30"},
		{"ipv6 remote", "[2001:db8::1]:443", nil, "2001:db8::1"},
		{"unparseable remote", "pipe", nil, "pipe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, proxies.clientAddr(req))
		})
	}
}

type stubStore struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allowed, 30 * time.Second, s.err
}

func serveLimited(m *RateLimitMiddleware, user *model.UserDTO) *httptest.ResponseRecorder {
	handler := m.Limit("send", 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "198.51.100.20:1234"
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserContextKey, user))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLimitKeysByUser(t *testing.T) {
	store := &stubStore{allowed: true}
	m := NewRateLimitMiddleware(store, nil, &config.AppConfig{})

	rec := serveLimited(m, &model.UserDTO{UID: "u1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	serveLimited(m, nil)
	require.Len(t, store.keys, 2)
	assert.Equal(t, "ratelimit:user:send:u1", store.keys[0])
	assert.Equal(t, "ratelimit:ip:send:198.51.100.20", store.keys[1])
}

func TestLimitRejects(t *testing.T) {
	m := NewRateLimitMiddleware(&stubStore{allowed: false}, nil, &config.AppConfig{})

	rec := serveLimited(m, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestLimitFallsBackWhenStoreFails(t *testing.T) {
	fallback := config.NewRateLimiter(time.Minute)
	defer fallback.Stop()
	m := NewRateLimitMiddleware(&stubStore{err: errors.New("redis down")}, fallback, &config.AppConfig{})

	assert.Equal(t, http.StatusNoContent, serveLimited(m, nil).Code)
	assert.Equal(t, http.StatusNoContent, serveLimited(m, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serveLimited(m, nil).Code)
}

func TestLimitWithoutFallbackReportsUnavailable(t *testing.T) {
	m := NewRateLimitMiddleware(&stubStore{err: errors.New("redis down")}, nil, &config.AppConfig{})
	assert.Equal(t, http.StatusServiceUnavailable, serveLimited(m, nil).Code)
}
