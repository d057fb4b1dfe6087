package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8, time.Minute)

	if _, err := m.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	buf := []byte("payload")
	if err := m.Set(ctx, "k", buf, time.Minute); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'

	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Get = %q, want stored copy", got)
	}
}

func TestMemoryIsBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100, time.Hour)

	for i := 0; i < 10000; i++ {
		key := fmt.Sprintf("bins:spider:2021-01-01:2021-12-31:%d", i)
		if err := m.Set(ctx, key, []byte("v"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	if n := m.Len(); n != 100 {
		t.Errorf("Len = %d, want 100", n)
	}
	if _, err := m.Get(ctx, "bins:spider:2021-01-01:2021-12-31:0"); !errors.Is(err, ErrMiss) {
		t.Errorf("oldest entry should be evicted, got %v", err)
	}
	if _, err := m.Get(ctx, "bins:spider:2021-01-01:2021-12-31:9999"); err != nil {
		t.Errorf("newest entry missing: %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8, 20*time.Millisecond)

	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := m.Get(ctx, "k"); errors.Is(err, ErrMiss) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("entry did not expire")
}
