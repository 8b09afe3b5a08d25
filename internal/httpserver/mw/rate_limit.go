package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/metrics"
	"github.com/MrSnakeDoc/localdrop/internal/utils"
)

// RateLimitConfig sizes the per-client token buckets guarding POST /item.
type RateLimitConfig struct {
	Burst             int           // posts allowed back to back
	RefillPerIPPerMin int           // sustained posts per minute
	MaxEntries        int           // tracked clients before an early sweep
	IdleTTL           time.Duration // forget clients idle this long
	TrustProxy        bool          // resolve IP from proxy headers when true
	Logger            logger.Logger
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter is a set of token buckets keyed by client.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond float64
	capacity  float64
	maxKeys   int
	idleTTL   time.Duration
	lastSweep time.Time
}

func NewLimiter(cfg RateLimitConfig) *Limiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerIPPerMin < 1 {
		cfg.RefillPerIPPerMin = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	return &Limiter{
		buckets:   make(map[string]*bucket),
		perSecond: float64(cfg.RefillPerIPPerMin) / 60,
		capacity:  float64(cfg.Burst),
		maxKeys:   cfg.MaxEntries,
		idleTTL:   cfg.IdleTTL,
	}
}

// Allow takes one token from key's bucket if it has one.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= time.Minute || (l.maxKeys > 0 && len(l.buckets) >= l.maxKeys) {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, lastSeen: now}
		l.buckets[key] = b
		metrics.RateLimitClients.Set(float64(len(l.buckets)))
	}

	if elapsed := now.Sub(b.lastSeen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.perSecond)
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return Decision{Allowed: true, Remaining: int(b.tokens)}
	}

	wait := math.Ceil((1 - b.tokens) / l.perSecond)
	if wait < 1 {
		wait = 1
	}
	return Decision{RetryAfter: time.Duration(wait) * time.Second}
}

// Clients returns the number of tracked clients.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
	metrics.RateLimitClients.Set(float64(len(l.buckets)))
}

// RateLimit rejects clients that post faster than the configured rate with a
// JSON 429 and a Retry-After header.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := NewLimiter(cfg)
	limit := strconv.Itoa(int(l.capacity))
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, cfg.TrustProxy)
			dec := l.Allow(ip, time.Now())

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))

			if !dec.Allowed {
				metrics.PostsRejectedTotal.Inc()
				log.Debug("post rate limited",
					logger.String("remote_ip", ip),
					logger.Duration("retry_after", dec.RetryAfter))

				w.Header().Set("Retry-After", strconv.Itoa(int(dec.RetryAfter/time.Second)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many posts, slow down"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
