package app

import (
	"context"
	"testing"
	"time"
)

func TestAllow_InertWithoutClient(t *testing.T) {
	var limiter *RedisRateLimiter
	allowed, retryAfter, err := limiter.Allow(context.Background(), "create_payment", "203.0.113.7", 10, time.Minute)
	if err != nil || !allowed || retryAfter != 0 {
		t.Fatalf("nil limiter: allowed=%t retryAfter=%d err=%v, want inert allow", allowed, retryAfter, err)
	}

	limiter = NewRedisRateLimiter(nil, "")
	allowed, _, err = limiter.Allow(context.Background(), "create_payment", "203.0.113.7", 10, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("client-less limiter: allowed=%t err=%v, want inert allow", allowed, err)
	}

	allowed, _, err = limiter.Allow(context.Background(), "create_payment", "203.0.113.7", 0, time.Minute)
	if err != nil || !allowed {
		t.Fatalf("zero limit: allowed=%t err=%v, want inert allow", allowed, err)
	}
}

func TestRateLimiterKey(t *testing.T) {
	limiter := NewRedisRateLimiter(nil, " donation:rate_limit: ")

	key, ok := limiter.key("create_payment", "203.0.113.7")
	if !ok || key != "donation:rate_limit:create_payment:203.0.113.7" {
		t.Fatalf("key = %q ok=%t", key, ok)
	}

	if _, ok := limiter.key("", "203.0.113.7"); ok {
		t.Fatal("blank scope must disable the limiter")
	}
	if _, ok := limiter.key("create_payment", "  "); ok {
		t.Fatal("blank subject must disable the limiter")
	}
}

func TestParseHitWindowReply(t *testing.T) {
	hits, remaining, err := parseHitWindowReply([]interface{}{int64(3), int64(42000)})
	if err != nil || hits != 3 || remaining != 42000 {
		t.Fatalf("hits=%d remaining=%d err=%v", hits, remaining, err)
	}

	if _, _, err := parseHitWindowReply("nope"); err == nil {
		t.Fatal("expected error for non-slice reply")
	}
	if _, _, err := parseHitWindowReply([]interface{}{int64(1)}); err == nil {
		t.Fatal("expected error for short reply")
	}
	if _, _, err := parseHitWindowReply([]interface{}{"1", int64(5)}); err == nil {
		t.Fatal("expected error for mistyped hit count")
	}
}
