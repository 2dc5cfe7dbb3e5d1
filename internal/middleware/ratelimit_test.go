package middleware

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRateLimiter_AllowAndDeny(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := now
	rl := NewRateLimiterWithNow(2, time.Minute, nil, func() time.Time { return clock })

	if !rl.Allow("ip") {
		t.Fatalf("expected allow")
	}
	if !rl.Allow("ip") {
		t.Fatalf("expected allow")
	}
	if rl.Allow("ip") {
		t.Fatalf("expected deny")
	}

	clock = clock.Add(time.Minute + time.Second)
	if !rl.Allow("ip") {
		t.Fatalf("expected allow after window")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiterWithNow(1, time.Minute, nil, func() time.Time { return clock })

	if !rl.Allow("a") {
		t.Fatalf("expected allow for a")
	}
	if rl.Allow("a") {
		t.Fatalf("expected deny for a")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected allow for b")
	}
}

func TestRateLimiter_AuthKeyedByAddressAndHandle(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiterWithNow(2, time.Minute, nil, func() time.Time { return clock })

	if !rl.AllowAuth("10.0.0.1", "rahim@example.com") {
		t.Fatalf("expected first attempt allowed")
	}
	if !rl.AllowAuth("10.0.0.1", "rahim@example.com") {
		t.Fatalf("expected second attempt allowed")
	}
	if rl.AllowAuth("10.0.0.1", "rahim@example.com") {
		t.Fatalf("expected deny once the address window is full")
	}

	// Rotating addresses does not reset the handle's window.
	if rl.AllowAuth("10.0.0.2", "rahim@example.com") {
		t.Fatalf("expected deny for exhausted handle from a fresh address")
	}
	// An exhausted address blocks fresh handles too.
	if rl.AllowAuth("10.0.0.1", "karim@example.com") {
		t.Fatalf("expected deny for exhausted address with a fresh handle")
	}
	// Unrelated address and handle stay unaffected.
	if !rl.AllowAuth("10.0.0.3", "karim@example.com") {
		t.Fatalf("expected allow for fresh address and handle")
	}
}

func TestRateLimiter_LogsRejections(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	core, logs := observer.New(zap.WarnLevel)
	rl := NewRateLimiterWithNow(1, time.Minute, zap.New(core), func() time.Time { return clock })

	if !rl.AllowAuth("10.0.0.1", "rahim@example.com") {
		t.Fatalf("expected first attempt allowed")
	}
	if logs.Len() != 0 {
		t.Fatalf("expected no log for allowed attempt, got %v", logs.All())
	}
	if rl.AllowAuth("10.0.0.1", "rahim@example.com") {
		t.Fatalf("expected deny")
	}
	if logs.FilterMessageSnippet("rate limited").Len() != 1 {
		t.Fatalf("expected one rejection log, got %v", logs.All())
	}
}
