package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	lim := NewMemory(2, time.Second)
	now := time.Now()

	for i := 0; i < 2; i++ {
		allowed, retry, err := lim.Allow(context.Background(), "ip", now)
		if err != nil || !allowed || retry != 0 {
			t.Fatalf("call %d: expected allow", i+1)
		}
	}

	allowed, retry, err := lim.Allow(context.Background(), "ip", now)
	if err != nil || allowed {
		t.Fatalf("expected rate limit on third call")
	}
	if retry <= 0 {
		t.Fatalf("expected retryAfter > 0")
	}

	allowed, _, err = lim.Allow(context.Background(), "ip", now.Add(2*time.Second))
	if err != nil || !allowed {
		t.Fatalf("expected allow after window reset")
	}
}

func TestMemoryLimiterIndependentKeys(t *testing.T) {
	lim := NewMemory(1, time.Second)
	now := time.Now()

	if ok, _, _ := lim.Allow(context.Background(), "a", now); !ok {
		t.Fatalf("expected allow for key a")
	}
	if ok, _, _ := lim.Allow(context.Background(), "b", now); !ok {
		t.Fatalf("expected allow for key b")
	}
	if ok, _, _ := lim.Allow(context.Background(), "a", now); ok {
		t.Fatalf("expected limit for key a")
	}
}

func TestMemoryLimiterCleanup(t *testing.T) {
	lim := NewMemory(1, 100*time.Millisecond)
	now := time.Now()

	lim.Allow(context.Background(), "stale", now)
	lim.Allow(context.Background(), "fresh", now.Add(time.Second))

	lim.mu.Lock()
	_, staleKept := lim.entries["stale"]
	lim.mu.Unlock()
	if staleKept {
		t.Fatalf("expected stale entry to be cleaned up")
	}
}
