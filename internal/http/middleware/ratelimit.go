package middleware

// RateLimiter keeps an in-memory token bucket per caller (X-User-ID, else
// client IP). A reaction retry whose Idempotency-Key is still reserved skips
// it. Buckets are process-local.

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

var rateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected with 429 by route.",
	},
	[]string{"path"},
)

func init() {
	prometheus.MustRegister(rateLimited)
}

// KeyFunc maps a request to its bucket identity.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by "user:<X-User-ID>" when Principal found one
// and by "ip:<client ip>" otherwise.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

const (
	idleBucketTTL = 10 * time.Minute
	// sweepEvery is the number of lookups between idle-bucket sweeps.
	sweepEvery = 5000
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per caller. It is safe for concurrent
// use.
type RateLimiter struct {
	rps        rate.Limit
	burst      int
	keyFn      KeyFunc
	clock      clockwork.Clock
	writesOnly bool

	mu       sync.Mutex
	visitors map[string]*visitor
	lookups  uint64
}

// NewRateLimiter refills rps tokens per second into buckets of size burst
// (at least 1). rps 0 rejects everything past the first burst.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    max(burst, 1),
		keyFn:    keyFn,
		clock:    clockwork.NewRealClock(),
		visitors: make(map[string]*visitor),
	}
}

// WithClock sets the clock used for refill and idle tracking.
func (rl *RateLimiter) WithClock(clock clockwork.Clock) *RateLimiter {
	rl.clock = clock
	return rl
}

// WritesOnly exempts GET, HEAD and OPTIONS.
func (rl *RateLimiter) WritesOnly() *RateLimiter {
	rl.writesOnly = true
	return rl
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// bucket returns the limiter for key, creating it when absent. Every
// sweepEvery lookups idle buckets are dropped first, so a stale bucket is
// replaced rather than refreshed.
func (rl *RateLimiter) bucket(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.lookups++; rl.lookups >= sweepEvery {
		rl.sweepLocked(now)
		rl.lookups = 0
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= idleBucketTTL {
			delete(rl.visitors, k)
		}
	}
}

// IsRateBypass reports whether IdempotencyValidator marked this request for
// rate-limit bypass (its Idempotency-Key is still reserved).
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler returns a Gin middleware that enforces per-key token-bucket limits.
// Replays flagged by IdempotencyValidator and, with WritesOnly, reads are let
// through. A rejection is answered
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: <seconds until the next token>
//	{"request_id": "<uuid>", "code": "rate_limited", "message": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || (rl.writesOnly && isSafeMethod(c.Request.Method)) {
			c.Next()
			return
		}

		now := rl.clock.Now()
		lim := rl.bucket(rl.keyFn(c), now)
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		rateLimited.WithLabelValues(path).Inc()

		c.Header("Retry-After", rl.retryAfter(lim, now))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter is the whole number of seconds until lim holds one token again,
// at least 1.
func (rl *RateLimiter) retryAfter(lim *rate.Limiter, now time.Time) string {
	if rl.rps <= 0 {
		return "1"
	}
	missing := 1 - lim.TokensAt(now)
	secs := int(math.Ceil(missing / float64(rl.rps)))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
