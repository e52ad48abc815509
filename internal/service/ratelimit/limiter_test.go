package ratelimit

import (
	"testing"
	"time"
)

func TestAllowRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := New()
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if !l.Allow("1.2.3.4", 2, 1) {
			t.Fatalf("call %d should pass", i)
		}
	}
	if l.Allow("1.2.3.4", 2, 1) {
		t.Fatal("bucket should be empty")
	}
	if !l.Allow("5.6.7.8", 2, 1) {
		t.Fatal("keys must not share a bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("1.2.3.4", 2, 1) {
		t.Fatal("one token should have refilled")
	}
}

func TestPrune(t *testing.T) {
	now := time.Unix(0, 0)
	l := New()
	l.now = func() time.Time { return now }
	l.Allow("a", 1, 1)
	now = now.Add(time.Hour)
	l.Allow("b", 1, 1)
	if n := l.Prune(time.Minute); n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
}
