package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tilbudsradar/backend/internal/domain"
)

func newTestMemoryCache(t *testing.T) (*MemoryCache, *time.Time) {
	t.Helper()
	c := NewMemoryCache(time.Hour)
	t.Cleanup(func() { c.Close() })

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c, _ := newTestMemoryCache(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value []byte
	}{
		{name: "matched outcome", key: "prisjagt:2025.1:iphone 16", value: []byte(`{"matched":true,"price":5999}`)},
		{name: "no match outcome", key: "prisjagt:2025.1:motorola edge 60", value: []byte(`{"matched":false,"price":null}`)},
		{name: "empty value", key: "empty", value: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(ctx, tt.key, tt.value, time.Minute); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := c.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != string(tt.value) {
				t.Errorf("Get() = %s, want %s", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c, now := newTestMemoryCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	*now = now.Add(2 * time.Minute)

	if _, err := c.Get(ctx, "key"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
	if ok, _ := c.Exists(ctx, "key"); ok {
		t.Error("expected expired key to not exist")
	}

	if c.Len() != 1 {
		t.Errorf("Len() before sweep = %d, want 1", c.Len())
	}
	c.sweep()
	if c.Len() != 0 {
		t.Errorf("Len() after sweep = %d, want 0", c.Len())
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	c, _ := newTestMemoryCache(t)

	_, err := c.Get(context.Background(), "non-existent")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_NonPositiveTTL(t *testing.T) {
	c, _ := newTestMemoryCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "key", []byte("value"), 0)
	if ok, _ := c.Exists(ctx, "key"); ok {
		t.Error("expected zero TTL to store nothing")
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	c, _ := newTestMemoryCache(t)
	ctx := context.Background()

	value := []byte("5999")
	_ = c.Set(ctx, "key", value, time.Minute)
	value[0] = 'X'

	got, _ := c.Get(ctx, "key")
	got[1] = 'Y'

	again, _ := c.Get(ctx, "key")
	if string(again) != "5999" {
		t.Errorf("stored value = %s, want 5999", again)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c, _ := newTestMemoryCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "key", []byte("value"), time.Minute)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if ok, _ := c.Exists(ctx, "key"); ok {
		t.Error("expected key to be deleted")
	}

	// Deleting a missing key is not an error
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete() on missing key error = %v", err)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c, _ := newTestMemoryCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Minute)
	}
	if c.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Second close is a no-op
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%10)
			_ = c.Set(ctx, key, []byte("value"), time.Minute)
			_, _ = c.Get(ctx, key)
			_, _ = c.Exists(ctx, key)
			if i%7 == 0 {
				_ = c.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
