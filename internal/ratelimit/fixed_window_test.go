package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinQuota(t *testing.T) {
	l, err := NewFixedWindowLimiter(3, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !l.Allow("login") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("login") {
		t.Fatalf("fourth attempt in the window should be refused")
	}
	// Other keys are unaffected.
	if !l.Allow("register") {
		t.Fatalf("separate key should have its own quota")
	}
}

func TestWindowRollover(t *testing.T) {
	l, err := NewFixedWindowLimiter(1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	current := time.Unix(1000, 0)
	l.now = func() time.Time { return current }

	if !l.Allow("login") {
		t.Fatalf("first attempt should pass")
	}
	if l.Allow("login") {
		t.Fatalf("second attempt in the same window should be refused")
	}
	current = current.Add(2 * time.Minute)
	if !l.Allow("login") {
		t.Fatalf("a new window resets the quota")
	}
}

func TestInvalidConfig(t *testing.T) {
	if _, err := NewFixedWindowLimiter(0, time.Minute); err == nil {
		t.Fatalf("zero limit must be rejected")
	}
	if _, err := NewFixedWindowLimiter(5, 0); err == nil {
		t.Fatalf("zero window must be rejected")
	}
}
