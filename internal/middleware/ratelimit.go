package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter pairs a token bucket with its last access time so stale
// entries can be evicted.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginRateLimiter throttles the anonymous auth entry points per client
// address. The OAuth code exchange hits an external provider, so a client
// hammering /auth/{provider} is both abuse and money; everything past the
// session gate is already tied to an authenticated user and left alone.
type LoginRateLimiter struct {
	perMinute int
	logger    *slog.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	stopCh   chan struct{}
}

// NewLoginRateLimiter allows perMinute requests per client address with an
// equal burst, and evicts idle entries in the background until Stop is called.
func NewLoginRateLimiter(perMinute int, logger *slog.Logger) *LoginRateLimiter {
	rl := &LoginRateLimiter{
		perMinute: perMinute,
		logger:    logger,
		limiters:  make(map[string]*clientLimiter),
		stopCh:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *LoginRateLimiter) Stop() {
	close(rl.stopCh)
}

// Middleware returns the throttling middleware. Place it after chi's RealIP
// so r.RemoteAddr reflects the actual client behind any proxy.
func (rl *LoginRateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientAddr(r)

			if !rl.allow(addr) {
				rl.logger.Warn("login rate limit exceeded", slog.String("addr", addr))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *LoginRateLimiter) allow(addr string) bool {
	rl.mu.Lock()
	cl, ok := rl.limiters[addr]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.perMinute),
		}
		rl.limiters[addr] = cl
	}
	cl.lastAccess = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

// cleanupLoop drops limiters idle for more than ten minutes so the map does
// not grow with every address ever seen.
func (rl *LoginRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			rl.mu.Lock()
			for addr, cl := range rl.limiters {
				if cl.lastAccess.Before(cutoff) {
					delete(rl.limiters, addr)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
