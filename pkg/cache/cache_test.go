package cache

import (
	"context"
	"testing"
	"time"
)

func TestTTLBasicOperations(t *testing.T) {
	c, err := NewTTL[int](context.Background(), time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("NewTTL: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", c.Len())
	}

	c.Set("a", 10)
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("Get(a) after overwrite = %d; want 10", v)
	}

	if !c.Delete("a") {
		t.Fatal("Delete(a) should report existing entry")
	}
	if c.Delete("a") {
		t.Fatal("Delete(a) twice should report missing entry")
	}

	c.Set("c", 3)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() after Clear = %d; want 0", c.Len())
	}
}

func TestTTLExpiry(t *testing.T) {
	c, err := NewTTL[string](context.Background(), 25*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTTL: %v", err)
	}
	defer c.Close()

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get(k) = %q, %v; want v, true", v, ok)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 0 {
		t.Fatalf("janitor should have swept entry, Len() = %d", c.Len())
	}
}

func TestTTLInvalidConfig(t *testing.T) {
	if _, err := NewTTL[int](context.Background(), 0, time.Second); err == nil {
		t.Fatal("NewTTL with zero ttl should fail")
	}
}

func TestTTLCloseStopsJanitor(t *testing.T) {
	c, err := NewTTL[int](context.Background(), time.Minute, time.Millisecond)
	if err != nil {
		t.Fatalf("NewTTL: %v", err)
	}
	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}
