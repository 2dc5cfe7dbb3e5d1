package middleware

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter throttles authentication attempts with a fixed window per
// key. Auth endpoints are limited on two dimensions at once, the caller's
// address and the handle being tried, so a distributed guessing run against
// one account is cut off even when every request arrives from a fresh IP.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*attemptWindow
	limit   int
	window  time.Duration
	log     *zap.Logger
	now     func() time.Time
}

type attemptWindow struct {
	attempts int
	until    time.Time
}

func NewRateLimiter(limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	return NewRateLimiterWithNow(limit, window, log, time.Now)
}

func NewRateLimiterWithNow(limit int, window time.Duration, log *zap.Logger, now func() time.Time) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	rl := &RateLimiter{
		windows: make(map[string]*attemptWindow),
		limit:   limit,
		window:  window,
		log:     log,
		now:     now,
	}
	go rl.sweep()
	return rl
}

// AllowAuth records one authentication attempt against both the address
// and the handle. Either dimension hitting its limit rejects the attempt.
func (rl *RateLimiter) AllowAuth(ip, handle string) bool {
	if !rl.Allow("ip:" + ip) {
		rl.log.Warn("middleware: auth attempt rate limited",
			zap.String("ip", ip), zap.String("handle", handle), zap.String("dimension", "ip"))
		return false
	}
	if handle != "" && !rl.Allow("handle:"+handle) {
		rl.log.Warn("middleware: auth attempt rate limited",
			zap.String("ip", ip), zap.String("handle", handle), zap.String("dimension", "handle"))
		return false
	}
	return true
}

// Allow records one attempt under key and reports whether it stays within
// the window's limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	win, ok := rl.windows[key]
	if !ok || now.After(win.until) {
		rl.windows[key] = &attemptWindow{attempts: 1, until: now.Add(rl.window)}
		return true
	}
	if win.attempts >= rl.limit {
		return false
	}
	win.attempts++
	return true
}

func (rl *RateLimiter) sweep() {
	if rl.window <= 0 {
		return
	}

	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := rl.now()
		for key, win := range rl.windows {
			if now.After(win.until) {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}
