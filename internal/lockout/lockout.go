// Package lockout is the emergency admission brake for booking traffic. It
// counts booking attempts per requester in a rolling redis window so the
// front desk can cut off a runaway integration or an abusive caller without
// touching the database.
package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alemendez13/sistema-ATU-sub000/pkg/logging"
)

// Config carries the admission limits.
type Config struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// DefaultConfig returns the shipped limits.
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		MaxAttempts: 10,
		Window:      time.Hour,
	}
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
}

// Checker counts booking attempts per requester key.
type Checker struct {
	redis  *redis.Client
	config Config
	logger *logging.Logger
}

func NewChecker(redisClient *redis.Client, config Config, logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Checker{redis: redisClient, config: config, logger: logger}
}

// Allow records one booking attempt for requester and reports whether it may
// proceed. Redis unavailability fails open: a broken counter must never stop
// the clinic from booking.
func (c *Checker) Allow(ctx context.Context, requester string) (*Result, error) {
	if !c.config.Enabled || c.redis == nil {
		return &Result{Allowed: true, MaxAllowed: c.config.MaxAttempts}, nil
	}

	key := fmt.Sprintf("lockout:booking:%s", requester)
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Error("lockout check failed, failing open", "error", err, "key", key)
		return &Result{Allowed: true, MaxAllowed: c.config.MaxAttempts}, nil
	}
	if count == 1 {
		c.redis.Expire(ctx, key, c.config.Window)
	}

	ttl, err := c.redis.TTL(ctx, key).Result()
	if err != nil {
		ttl = c.config.Window
	}

	result := &Result{
		Allowed:      int(count) <= c.config.MaxAttempts,
		CurrentCount: int(count),
		MaxAllowed:   c.config.MaxAttempts,
		WindowExpiry: time.Now().Add(ttl),
	}
	if !result.Allowed {
		c.logger.Warn("booking admission locked out",
			"requester", requester,
			"count", count,
			"max", c.config.MaxAttempts,
		)
	}
	return result, nil
}

// Reset clears the counter for a requester so staff can lift a lockout
// without waiting for the window to expire.
func (c *Checker) Reset(ctx context.Context, requester string) error {
	if c.redis == nil {
		return nil
	}
	key := fmt.Sprintf("lockout:booking:%s", requester)
	return c.redis.Del(ctx, key).Err()
}
