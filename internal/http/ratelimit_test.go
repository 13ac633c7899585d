package http

import (
	"testing"
	"time"
)

func TestLimitClassFor(t *testing.T) {
	if got := limitClassFor("/api/count"); got != classTap {
		t.Fatalf("count endpoint should be in the tap class, got %v", got)
	}
	for _, path := range []string{"/api/items", "/api/items/espresso", "/api/prices/espresso", "/api/reset/all"} {
		if got := limitClassFor(path); got != classAdmin {
			t.Fatalf("%s should be in the admin class, got %v", path, got)
		}
	}
}

func TestTapBudgetAllowsBursts(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()
	m := &securityMetrics{}

	for i := 0; i < tapBudget; i++ {
		if !rl.allow("10.0.0.1", classTap, m) {
			t.Fatalf("tap %d rejected inside the budget", i+1)
		}
	}
	if rl.allow("10.0.0.1", classTap, m) {
		t.Fatalf("tap over budget should be rejected")
	}
}

func TestBudgetsAreIndependentPerClassAndClient(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()
	m := &securityMetrics{}

	// Spend the whole admin budget for one client.
	for i := 0; i < adminBudget; i++ {
		if !rl.allow("10.0.0.1", classAdmin, m) {
			t.Fatalf("admin request %d rejected inside the budget", i+1)
		}
	}
	if rl.allow("10.0.0.1", classAdmin, m) {
		t.Fatalf("admin request over budget should be rejected")
	}

	// Taps from the same client still pass, as does admin traffic
	// from a different client.
	if !rl.allow("10.0.0.1", classTap, m) {
		t.Fatalf("spent admin budget must not block taps")
	}
	if !rl.allow("10.0.0.2", classAdmin, m) {
		t.Fatalf("one client's budget must not affect another")
	}
}

func TestWindowResets(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i <= adminBudget; i++ {
		rl.allow("10.0.0.1", classAdmin, nil)
	}
	if rl.allow("10.0.0.1", classAdmin, nil) {
		t.Fatalf("expected the budget to be spent")
	}

	// Age the window past a minute; the next request opens a new one.
	rl.mu.Lock()
	rl.clients["10.0.0.1"].windowStart = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.allow("10.0.0.1", classAdmin, nil) {
		t.Fatalf("expected a fresh window after the old one ended")
	}
}

func TestCleanupDropsStaleWindows(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	rl.allow("10.0.0.1", classTap, nil)
	rl.mu.Lock()
	rl.clients["10.0.0.1"].windowStart = time.Now().Add(-30 * time.Minute)
	rl.mu.Unlock()

	rl.cleanupStaleEntries()

	rl.mu.Lock()
	_, ok := rl.clients["10.0.0.1"]
	rl.mu.Unlock()
	if ok {
		t.Fatalf("stale window should have been removed")
	}
}
