package edge

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IdentityHeader keys rate-limit buckets; requests without it share one
// anonymous bucket
const (
	IdentityHeader = "X-User-ID"
	anonymousKey   = "anonymous"
)

// RateLimitConfig sets the per-key refill rate (tokens per second) and
// burst capacity
type RateLimitConfig struct {
	Rate  float64
	Burst int
}

// RateLimiter is a token-bucket limiter per derived identity key. Each
// request costs one token; a request over capacity is rejected, never
// queued. Bucket state lives for the process lifetime only.
type RateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow takes one token from the key's bucket, reporting whether the
// request may proceed
func (l *RateLimiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}

// Key derives the bucket key from the request identity header
func Key(r *http.Request) string {
	if id := r.Header.Get(IdentityHeader); id != "" {
		return id
	}
	return anonymousKey
}

// Middleware gates a route group behind the limiter
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(Key(c.Request)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			return
		}
		c.Next()
	}
}

// bucket returns the key's limiter, creating it on first use. The map
// access is the only shared mutation; the bucket itself is internally
// synchronized.
func (l *RateLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)
		l.buckets[key] = b
	}
	return b
}
