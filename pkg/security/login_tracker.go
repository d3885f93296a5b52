package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// LoginTrackerConfig holds configuration for login tracking
type LoginTrackerConfig struct {
	MaxAttempts   int           // failed attempts before a block
	AttemptWindow time.Duration // window the counter lives for
	BlockDuration time.Duration // how long a block lasts
	UseIPTracking bool          // also count by client IP
}

func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
		UseIPTracking: true,
	}
}

// LoginTracker counts failed sign-ins in Redis and enforces temporary blocks.
// With a nil client it fails open.
type LoginTracker struct {
	client *goredis.Client
	config LoginTrackerConfig
	audit  *SecurityLogger
}

func NewLoginTracker(client *goredis.Client, config LoginTrackerConfig, audit *SecurityLogger) *LoginTracker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultLoginTrackerConfig().MaxAttempts
	}
	if config.AttemptWindow <= 0 {
		config.AttemptWindow = DefaultLoginTrackerConfig().AttemptWindow
	}
	if config.BlockDuration <= 0 {
		config.BlockDuration = DefaultLoginTrackerConfig().BlockDuration
	}
	return &LoginTracker{client: client, config: config, audit: audit}
}

const (
	failLoginUserPrefix    = "fail:login:user:"
	failLoginIPPrefix      = "fail:login:ip:"
	blockedLoginUserPrefix = "blocked:login:user:"
	blockedLoginIPPrefix   = "blocked:login:ip:"
)

// INCR and set the window TTL on the first hit, atomically.
var incrWithTTL = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsBlocked reports whether email or ip is currently blocked.
func (lt *LoginTracker) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	if lt.client == nil {
		return false, nil
	}

	keys := []string{blockedLoginUserPrefix + normalizeEmail(email)}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}

	n, err := lt.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check login block: %w", err)
	}
	return n > 0, nil
}

// RecordFailedAttempt increments the counters and creates a block once the
// limit is reached. Returns (blocked, attempts, error).
func (lt *LoginTracker) RecordFailedAttempt(ctx context.Context, email string, meta RequestMeta, reason string) (bool, int, error) {
	lt.audit.LogLoginFailed(ctx, email, meta, reason)

	if lt.client == nil {
		return false, 0, nil
	}

	window := int(lt.config.AttemptWindow.Seconds())
	email = normalizeEmail(email)

	userCount, err := incrWithTTL.Run(ctx, lt.client, []string{failLoginUserPrefix + email}, window).Int()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login counter: %w", err)
	}

	if lt.config.UseIPTracking && meta.IP != "" {
		_ = incrWithTTL.Run(ctx, lt.client, []string{failLoginIPPrefix + meta.IP}, window).Err()
	}

	if userCount < lt.config.MaxAttempts {
		return false, userCount, nil
	}

	pipe := lt.client.TxPipeline()
	pipe.Set(ctx, blockedLoginUserPrefix+email, "1", lt.config.BlockDuration)
	if lt.config.UseIPTracking && meta.IP != "" {
		pipe.Set(ctx, blockedLoginIPPrefix+meta.IP, "1", lt.config.BlockDuration)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true, userCount, fmt.Errorf("failed to create block: %w", err)
	}

	lt.audit.LogLoginBlocked(ctx, email, meta)
	return true, userCount, nil
}

// ClearAttempts resets counters after a successful sign-in.
func (lt *LoginTracker) ClearAttempts(ctx context.Context, email, ip string) error {
	if lt.client == nil {
		return nil
	}

	keys := []string{failLoginUserPrefix + normalizeEmail(email)}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, failLoginIPPrefix+ip)
	}
	if err := lt.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// BlockTTL returns how long until the email's block expires.
func (lt *LoginTracker) BlockTTL(ctx context.Context, email string) (time.Duration, bool, error) {
	if lt.client == nil {
		return 0, false, nil
	}

	ttl, err := lt.client.TTL(ctx, blockedLoginUserPrefix+normalizeEmail(email)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get block TTL: %w", err)
	}
	if ttl < 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}
