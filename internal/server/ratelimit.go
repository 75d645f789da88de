package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	xrate "golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client address. A client may burst
// up to the full window allowance, then refills at allowance/window.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    xrate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
	now      func() time.Time
	log      *zap.Logger
}

type limiterEntry struct {
	limiter    *xrate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows requests per window for each client.
func NewRateLimiter(requests int, window time.Duration, log *zap.Logger) *RateLimiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    xrate.Every(window / time.Duration(requests)),
		burst:    requests,
		idleTTL:  window,
		now:      time.Now,
		log:      log,
	}
}

// getLimiter returns the limiter for key, dropping limiters idle for longer
// than a full window. An idle limiter is back to a full bucket anyway.
func (rl *RateLimiter) getLimiter(key string) *xrate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastScan) > rl.idleTTL {
		for k, e := range rl.limiters {
			if now.Sub(e.lastAccess) > rl.idleTTL {
				delete(rl.limiters, k)
			}
		}
		rl.lastScan = now
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: xrate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastAccess = now
	return e.limiter
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}

// Middleware rejects requests over the allowance with 429. Health checks are
// never limited.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		limiter := rl.getLimiter(key)
		now := rl.now()
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))

		res := limiter.ReserveN(now, 1)
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			rl.log.Warn("rate limit exceeded",
				zap.String("client", key),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", requestIDFrom(r.Context())))

			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			writeErrorJSON(w, http.StatusTooManyRequests, "rate_limited",
				"too many requests from this client, please try again later")
			return
		}

		remaining := int(limiter.TokensAt(now))
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}
