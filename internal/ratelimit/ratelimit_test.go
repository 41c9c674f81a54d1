package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinAndBeyondMax(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)

	// create_public_and_submit: 60s / 12
	for i := 0; i < 12; i++ {
		ok, _ := l.Allow("1.2.3.4", "create_public_and_submit", now)
		if !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	ok, retry := l.Allow("1.2.3.4", "create_public_and_submit", now)
	if ok {
		t.Fatal("13th request should be rejected")
	}
	if retry <= 0 {
		t.Fatalf("expected positive retryAfter, got %v", retry)
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	for i := 0; i < 12; i++ {
		l.Allow("1.2.3.4", "create_public_and_submit", now)
	}
	later := now.Add(61 * time.Second)
	ok, _ := l.Allow("1.2.3.4", "create_public_and_submit", later)
	if !ok {
		t.Fatal("request after window elapsed should be allowed")
	}
}

func TestAllowIsolatedByAddrAndVerb(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	for i := 0; i < 12; i++ {
		l.Allow("1.2.3.4", "create_public_and_submit", now)
	}
	if ok, _ := l.Allow("5.6.7.8", "create_public_and_submit", now); !ok {
		t.Fatal("different address should have its own bucket")
	}
	if ok, _ := l.Allow("1.2.3.4", "hello", now); !ok {
		t.Fatal("different verb should have its own bucket")
	}
}

func TestSweepDropsStaleBuckets(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	l.Allow("1.2.3.4", "hello", now)
	if l.Len() != 1 {
		t.Fatalf("expected 1 bucket, got %d", l.Len())
	}
	l.Sweep(now.Add(time.Hour))
	if l.Len() != 0 {
		t.Fatalf("expected buckets swept, got %d remaining", l.Len())
	}
}

func TestDefaultRuleAppliesToUnknownVerb(t *testing.T) {
	l := New()
	now := time.Unix(0, 0)
	for i := 0; i < DefaultRule.Max; i++ {
		ok, _ := l.Allow("1.2.3.4", "some_future_verb", now)
		if !ok {
			t.Fatalf("request %d under default rule should be allowed", i)
		}
	}
	if ok, _ := l.Allow("1.2.3.4", "some_future_verb", now); ok {
		t.Fatal("request beyond default max should be rejected")
	}
}
