package fetch

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://api.stlouisfed.org/fred/series"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different host gets its own budget
	if err := limiter.Wait(ctx, "https://api.worldbank.org/v2/country"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_PerHostBudget(t *testing.T) {
	// 1 rps, burst 1: the second request on the same host must wait
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://sdmx.oecd.org/a"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	// The other host is still unconstrained
	start := time.Now()
	if err := limiter.Wait(ctx, "https://api.worldbank.org/b"); err != nil {
		t.Fatalf("other host wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("other host should not have waited, took %v", elapsed)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	ctx := context.Background()

	// Consume the burst token
	if err := limiter.Wait(ctx, "https://example.com"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(cancelCtx, "https://example.com"); err == nil {
		t.Error("expected error when context expires before clearance")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(100, 10)
	limiter.SetHostRate("slow.example.com", 0.1, 1)

	ctx := context.Background()

	// Burst of one passes, then the host budget is exhausted
	if err := limiter.Wait(ctx, "https://slow.example.com/x"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(cancelCtx, "https://slow.example.com/y"); err == nil {
		t.Error("expected the custom host rate to block the second request")
	}

	// Default hosts keep the fast budget
	if err := limiter.Wait(ctx, "https://fast.example.com/z"); err != nil {
		t.Errorf("fast host wait failed: %v", err)
	}
}

func TestLimiter_InvalidURL(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if err := limiter.Wait(context.Background(), "::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
