package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newLimiter(t *testing.T, addr string, limit int, failOpen bool) *FixedWindowLimiter {
	t.Helper()
	l, err := New(Config{Addr: addr, Prefix: "test:ratelimit", Limit: limit, Window: time.Minute, FailOpen: failOpen})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestFixedWindowLimiterBlocksAfterLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newLimiter(t, mr.Addr(), 2, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	d, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed {
		t.Fatalf("third request should be blocked")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("unexpected retry after: %v", d.RetryAfter)
	}
	other, err := l.Allow(ctx, "10.0.0.2")
	if err != nil || !other.Allowed {
		t.Fatalf("other keys keep their own quota: %+v %v", other, err)
	}
}

func TestFixedWindowLimiterResetsOnNextWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	l := newLimiter(t, mr.Addr(), 1, false)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Fatalf("first request should pass")
	}
	if d, _ := l.Allow(ctx, "k"); d.Allowed {
		t.Fatalf("second request in the same window should be blocked")
	}
	now = now.Add(time.Minute)
	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Fatalf("request in the next window should pass")
	}
}

func TestFixedWindowLimiterFailureMode(t *testing.T) {
	mr := miniredis.RunT(t)
	closed := newLimiter(t, mr.Addr(), 1, false)
	open := newLimiter(t, mr.Addr(), 1, true)
	mr.Close()

	if d, err := closed.Allow(context.Background(), "k"); err == nil || d.Allowed {
		t.Fatalf("fail-closed limiter should reject on redis errors: %+v %v", d, err)
	}
	if d, err := open.Allow(context.Background(), "k"); err == nil || !d.Allowed {
		t.Fatalf("fail-open limiter should admit on redis errors: %+v %v", d, err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Limit: 1, Window: time.Second}); err == nil {
		t.Fatalf("expected error for empty redis addr")
	}
	if _, err := New(Config{Addr: "localhost:6379", Limit: 0, Window: time.Second}); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	for _, window := range []time.Duration{time.Nanosecond, 999 * time.Microsecond} {
		if _, err := New(Config{Addr: "localhost:6379", Limit: 1, Window: window}); err == nil {
			t.Fatalf("expected error for %s window", window)
		}
	}
	l, err := New(Config{Addr: "localhost:6379", Limit: 1, Window: time.Millisecond})
	if err != nil {
		t.Fatalf("1ms window: %v", err)
	}
	_ = l.Close()
}
