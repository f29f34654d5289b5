package cache

import (
	"testing"
	"time"
)

func TestGetMiss(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	if _, ok := c.Get("absent"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestSetGet(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Set("a", 1)
	got, ok := c.Get("a")
	if !ok || got != 1 {
		t.Fatalf("Get = (%d, %v), want (1, true)", got, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := NewTTL[string, string](time.Minute)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted, len = %d", c.Len())
	}
}

func TestSetTTLOverridesDefault(t *testing.T) {
	c := NewTTL[string, string](time.Minute)
	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	c.SetTTL("k", "v", time.Hour)
	current = current.Add(30 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit within explicit ttl")
	}
}

func TestInvalidateAndClear(t *testing.T) {
	c := NewTTL[string, int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after invalidate")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("unrelated key should survive invalidate")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len after clear = %d", c.Len())
	}
}
