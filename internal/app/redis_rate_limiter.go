/**
 * @description
 * Redis-backed fixed-window rate limiting. Every create-payment call opens a
 * checkout session with the payment gateway, so the public endpoint caps
 * hits per caller IP, shared across all instances through Redis.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitWindowScript counts one hit in the subject's current window and reports
// how long the window has left. The expiry is attached when the key is first
// created so an abandoned counter always ages out.
var hitWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local remaining = redis.call("PTTL", KEYS[1])
if remaining < 0 then
  remaining = tonumber(ARGV[1])
end
return {hits, remaining}
`)

// RedisRateLimiter enforces a fixed-window hit cap per (scope, subject) pair.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "donation:rate_limit"
	}
	return &RedisRateLimiter{client: client, prefix: p}
}

// Allow records one hit for the subject and reports whether it is still
// within the limit. A nil limiter, missing client, non-positive limit, or
// blank scope/subject makes the limiter inert: every hit is allowed.
// retryAfter is whole seconds until the window resets, suitable for a
// Retry-After header.
func (l *RedisRateLimiter) Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (allowed bool, retryAfter int, err error) {
	if l == nil || l.client == nil || limit <= 0 || window <= 0 {
		return true, 0, nil
	}
	key, ok := l.key(scope, subject)
	if !ok {
		return true, 0, nil
	}

	// Sub-second windows round up so PEXPIRE always gets a sane TTL.
	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	raw, err := hitWindowScript.Run(ctx, l.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}
	hits, remainingMs, err := parseHitWindowReply(raw)
	if err != nil {
		return false, 0, err
	}
	if remainingMs < 0 || remainingMs > windowMs {
		remainingMs = windowMs
	}

	retryAfter = int((remainingMs + 999) / 1000)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return hits <= int64(limit), retryAfter, nil
}

func (l *RedisRateLimiter) key(scope, subject string) (string, bool) {
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return "", false
	}
	return fmt.Sprintf("%s:%s:%s", l.prefix, scope, subject), true
}

func parseHitWindowReply(raw interface{}) (hits, remainingMs int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected limiter reply shape: %T", raw)
	}
	hits, ok = values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected limiter hit count type: %T", values[0])
	}
	remainingMs, ok = values[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected limiter ttl type: %T", values[1])
	}
	return hits, remainingMs, nil
}
