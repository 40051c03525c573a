package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func newTestLimiter(t *testing.T, perMinute int) *LoginRateLimiter {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	rl := NewLoginRateLimiter(perMinute, logger)
	t.Cleanup(rl.Stop)
	return rl
}

func TestLoginRateLimiter_BurstThenBlock(t *testing.T) {
	rl := newTestLimiter(t, 3)

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// The burst allowance admits perMinute requests back to back.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("request over burst status = %d, want 429", rr.Code)
	}
}

func TestLoginRateLimiter_PerAddress(t *testing.T) {
	rl := newTestLimiter(t, 1)

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust one address's allowance.
	first := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	first.RemoteAddr = "10.0.0.1:5000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rr.Code)
	}

	blocked := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	blocked.RemoteAddr = "10.0.0.1:5001" // same host, different port
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, blocked)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("same-host request status = %d, want 429 (limited by address, not port)", rr.Code)
	}

	// A different client is unaffected.
	other := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rr.Code)
	}
}
