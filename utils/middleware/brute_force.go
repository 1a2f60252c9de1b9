package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/utils/response"
)

// AttemptStore is the counter storage behind BruteForceProtection
type AttemptStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
}

// BruteForceProtection locks out IPs after repeated failed logins
type BruteForceProtection struct {
	store AttemptStore
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(store AttemptStore) *BruteForceProtection {
	return &BruteForceProtection{store: store}
}

func attemptKey(ip string) string { return "login:attempts:" + ip }
func lockKey(ip string) string    { return "login:lock:" + ip }

// lockoutFor is the progressive lockout after n failed attempts in the window
func lockoutFor(n int64) time.Duration {
	switch {
	case n >= 25:
		return 24 * time.Hour
	case n >= 10:
		return time.Hour
	case n >= 5:
		return 2 * time.Minute
	default:
		return 0
	}
}

// Check rejects requests from a locked-out IP. Store failures let the request through.
func (b *BruteForceProtection) Check() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		locked, err := b.store.Exists(ctx, lockKey(c.IP()))
		if err != nil || !locked {
			return c.Next()
		}

		retryAfter := 60
		if ttl, err := b.store.TTL(ctx, lockKey(c.IP())); err == nil && ttl > 0 {
			retryAfter = int(ttl.Seconds())
		}
		c.Set("Retry-After", strconv.Itoa(retryAfter))
		return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
	}
}

// RecordFailure counts a failed login and applies the lockout
func (b *BruteForceProtection) RecordFailure(ctx context.Context, ip string) {
	n, err := b.store.Increment(ctx, attemptKey(ip))
	if err != nil {
		return
	}
	if n == 1 {
		_ = b.store.Expire(ctx, attemptKey(ip), 15*time.Minute)
	}
	if d := lockoutFor(n); d > 0 {
		_ = b.store.Set(ctx, lockKey(ip), "locked", d)
	}
}

// RecordSuccess clears the counters after a successful login
func (b *BruteForceProtection) RecordSuccess(ctx context.Context, ip string) {
	_ = b.store.Delete(ctx, attemptKey(ip), lockKey(ip))
}
