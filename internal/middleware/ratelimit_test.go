package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimiter(t *testing.T, scope string, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimiter(client, scope, limit, time.Minute), mr
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hitFrom(h http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistants/x/chat", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := setupRateLimiter(t, "chat", 3)
	h := rl.Middleware(ok)

	for i := 0; i < 3; i++ {
		rec := hitFrom(h, "10.0.0.1:12345")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := hitFrom(h, "10.0.0.1:12345")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl, _ := setupRateLimiter(t, "chat", 1)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(ok)

	assert.Equal(t, http.StatusOK, hitFrom(h, "10.0.0.2:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(h, "10.0.0.2:1").Code)

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, hitFrom(h, "10.0.0.2:1").Code)
}

func TestRateLimiter_IndependentKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	chat := NewRateLimiter(client, "chat", 1, time.Minute).Middleware(ok)
	auth := NewRateLimiter(client, "auth", 1, time.Minute).Middleware(ok)

	assert.Equal(t, http.StatusOK, hitFrom(chat, "1.1.1.1:1").Code)
	assert.Equal(t, http.StatusOK, hitFrom(chat, "2.2.2.2:1").Code, "other ip")
	assert.Equal(t, http.StatusOK, hitFrom(auth, "1.1.1.1:1").Code, "other scope")
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(chat, "1.1.1.1:1").Code)
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	rl, mr := setupRateLimiter(t, "chat", 1)
	mr.Close()

	assert.Equal(t, http.StatusOK, hitFrom(rl.Middleware(ok), "3.3.3.3:1").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.9:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.9:80", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
