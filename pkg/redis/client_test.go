package redis

import (
	"testing"
	"time"

	"github.com/opslog-io/opslog-backend/pkg/config"
)

func TestOptionsFromConfigURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:      "redis://:secret@localhost:6380/2",
		PoolSize: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 5 {
		t.Fatalf("pool size not applied: %d", opts.PoolSize)
	}
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:     "redis.internal:6379",
		Password:    "pw",
		DB:          1,
		DialTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "redis.internal:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DialTimeout != 2*time.Second {
		t.Fatalf("dial timeout not applied: %s", opts.DialTimeout)
	}
}

func TestOptionsFromConfigMissing(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	if got := c.IdempotencyKey("webhook-events", "abc"); got != "opslog:idempotency:webhook-events:abc" {
		t.Fatalf("unexpected idempotency key %q", got)
	}
	if got := c.LockKey("cron-worker"); got != "opslog:lock:cron-worker" {
		t.Fatalf("unexpected lock key %q", got)
	}
}
