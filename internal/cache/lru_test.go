package cache

import (
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New[int](10, 0)
	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", v, ok)
	}
}

func TestCache_MissReportsFalse(t *testing.T) {
	c := New[int](10, 0)
	_, ok := c.Get("missing")
	if ok {
		t.Error("expected miss")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most-recently-used; b is LRU
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestCache_StatsTrackHitsAndMisses(t *testing.T) {
	c := New[int](10, 0)
	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", stats.HitRate)
	}
}

func TestCache_ClearResetsSizeNotCumulativeStats(t *testing.T) {
	c := New[int](10, 0)
	c.Set("a", 1)
	c.Get("a")
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, got %d", c.Len())
	}
	if c.Stats().Hits != 1 {
		t.Error("expected cumulative hit count to survive Clear")
	}
}

func TestCache_DeleteRemovesEntry(t *testing.T) {
	c := New[int](10, 0)
	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected entry to be removed")
	}
}

func TestCache_EvictExpiredSweepsStaleEntries(t *testing.T) {
	c := New[int](10, 5*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(15 * time.Millisecond)
	if n := c.EvictExpired(); n != 1 {
		t.Errorf("expected 1 entry swept, got %d", n)
	}
}
