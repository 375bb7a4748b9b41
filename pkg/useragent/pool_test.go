package useragent

import (
	"sync"
	"testing"
)

func TestPool_Sequential(t *testing.T) {
	pool := NewPool([]string{"ua-a", "ua-b", "ua-c"})

	want := []string{"ua-a", "ua-b", "ua-c", "ua-a"}
	for i, w := range want {
		if got := pool.GetSequential(); got != w {
			t.Errorf("GetSequential #%d = %q, want %q", i, got, w)
		}
	}
}

func TestPool_DefaultFallback(t *testing.T) {
	pool := NewPool(nil)
	if got := pool.GetSequential(); got != DefaultPool[0] {
		t.Errorf("empty pool should fall back to DefaultPool, got %q", got)
	}
	if len(pool.GetAll()) != len(DefaultPool) {
		t.Errorf("GetAll returned %d entries, want %d", len(pool.GetAll()), len(DefaultPool))
	}
}

func TestPool_RandomIsMember(t *testing.T) {
	uas := []string{"ua-a", "ua-b"}
	pool := NewPool(uas)

	for i := 0; i < 20; i++ {
		got := pool.GetRandom()
		if got != "ua-a" && got != "ua-b" {
			t.Fatalf("GetRandom returned %q, not a pool member", got)
		}
	}
}

func TestPool_ConcurrentAccess(t *testing.T) {
	pool := NewPool([]string{"ua-a", "ua-b", "ua-c"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pool.GetSequential() == "" {
				t.Error("GetSequential returned empty string")
			}
		}()
	}
	wg.Wait()
}
