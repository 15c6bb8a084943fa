package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/laviebeauty/lavie-platform/internal/tenancy"
)

// RateLimiter throttles API traffic with a token bucket per tenant. Requests
// are keyed by salon id once tenancy is resolved, so one misbehaving salon
// cannot starve the others; requests without a tenant share a bucket per
// client IP.
type RateLimiter struct {
	mu      sync.Mutex
	tenants map[string]*tokenBucket
	rate    float64 // tokens refilled per second
	burst   int     // bucket capacity
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests/sec with the given
// burst size per tenant.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		tenants: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   burst,
	}
	// Evict buckets for tenants that went quiet.
	go rl.evictStale()
	return rl
}

// Allow reports whether the tenant identified by key is within its limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.tenants[key]
	if !ok {
		b = &tokenBucket{tokens: float64(rl.burst), seen: now}
		rl.tenants[key] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictStale() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, b := range rl.tenants {
			if b.seen.Before(cutoff) {
				delete(rl.tenants, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit returns middleware that answers 429 once a tenant exceeds the
// configured rate. It must run after RequireSalonID so the salon id is
// available as the bucket key.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(limitKey(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitKey(r *http.Request) string {
	if salonID, ok := tenancy.SalonIDFromContext(r.Context()); ok {
		return "salon:" + salonID
	}
	// chi's RealIP rewrites RemoteAddr from X-Real-Ip / X-Forwarded-For.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
