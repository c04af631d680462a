package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)

	*now = now.Add(20 * time.Second)
	ok, reset := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, reset)

	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok, "clients are counted separately")

	*now = now.Add(40 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok, "a new window starts after a minute")
}

func TestCleanupDropsStaleClients(t *testing.T) {
	rl, now := newTestLimiter(t, 5)
	rl.Allow("a")
	*now = now.Add(11 * time.Minute)
	rl.Allow("b")

	assert.Equal(t, 2, rl.ActiveClients())
	assert.Equal(t, 1, rl.cleanup())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	assert.Equal(t, 60, rl.limit)
	rl.Stop()
	require.NotPanics(t, rl.Stop)
}

func TestMiddlewareLimitsMutatingRequestsOnly(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ip := func(*http.Request) string { return "9.9.9.9" }
	h := rl.Middleware(ip, Mutating, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/budgets", nil))
		return rr
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost).Code)
	limited := do(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))

	for range 3 {
		assert.Equal(t, http.StatusNoContent, do(http.MethodGet).Code)
	}
}

func TestMiddlewareCustomRejection(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	called := 0
	h := rl.Middleware(
		func(*http.Request) string { return "x" },
		nil,
		func(w http.ResponseWriter, _ *http.Request) {
			called++
			w.WriteHeader(http.StatusTeapot)
		},
	)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for range 2 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, 2, called)
}
