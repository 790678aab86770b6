// Package throttle limits the rate of credential submissions per client.
package throttle

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/datacentricdesign/profile-api/internal/config"
)

const (
	defaultRate  = 1
	defaultBurst = 5
	defaultSize  = 10000
	defaultTTL   = 10 * time.Minute
)

// Limiter holds one token bucket per client key. A bucket lives for the
// configured ttl, then the client starts over with a full one.
type Limiter struct {
	limit   rate.Limit
	burst   int
	buckets *expirable.LRU[string, *rate.Limiter]
}

// New creates a Limiter. Zero values of cfg fall back to defaults.
func New(cfg config.Throttle) *Limiter {
	l := &Limiter{
		limit: rate.Limit(cfg.Rate),
		burst: cfg.Burst,
	}

	if l.limit <= 0 {
		l.limit = defaultRate
	}

	if l.burst <= 0 {
		l.burst = defaultBurst
	}

	size, ttl := cfg.Size, cfg.TTL
	if size <= 0 {
		size = defaultSize
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}

	l.buckets = expirable.NewLRU[string, *rate.Limiter](size, nil, ttl)

	return l
}

// Allow reports whether key may proceed now and takes a token if so.
func (l *Limiter) Allow(key string) bool {
	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		// two requests racing here may both create a bucket, the last one wins
		l.buckets.Add(key, b)
	}

	return b.Allow()
}

// Middleware answers 429 when the client ip has no token left.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			log.Warn().Str("ip", c.IP()).Str("path", c.Path()).Msg("request throttled")

			return fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts, try again later.")
		}

		return c.Next()
	}
}
