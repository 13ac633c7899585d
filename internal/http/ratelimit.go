package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// Mutation budgets per client IP over a fixed one-minute window.
// Counter taps are the primary interaction and arrive in bursts when
// someone logs a whole morning at once, so they get a much larger
// budget than catalog edits, price changes and resets.
const (
	tapBudget   = 120
	adminBudget = 20
)

type limitClass int

const (
	classTap limitClass = iota
	classAdmin
)

// limitClassFor maps a request path to its budget class. Only mutating
// methods are charged, so read endpoints never reach the limiter.
func limitClassFor(path string) limitClass {
	if path == "/api/count" {
		return classTap
	}
	return classAdmin
}

// rateLimiter tracks per-IP mutation budgets in memory.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientWindow
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// clientWindow counts charged requests per class since windowStart.
type clientWindow struct {
	windowStart time.Time
	taps        int
	admin       int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientWindow),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client windows.
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries drops windows idle for more than ten minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, w := range rl.clients {
		if w.windowStart.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop shuts down the cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// allow charges one request of the given class against the client's
// current window, opening a fresh window when the previous one ended.
// Returns false once the class budget for the window is spent.
func (rl *rateLimiter) allow(clientIP string, class limitClass, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.clients[clientIP]
	if !ok || now.Sub(w.windowStart) > time.Minute {
		w = &clientWindow{windowStart: now}
		rl.clients[clientIP] = w
	}

	var used *int
	var budget int
	switch class {
	case classTap:
		used, budget = &w.taps, tapBudget
	default:
		used, budget = &w.admin, adminBudget
	}

	*used++
	if *used > budget {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
