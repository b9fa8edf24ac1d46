package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestCache_PutGet(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}

	rates := map[string]float64{"exalted": 1, "divine": 320}
	if err := c.Put("rates", rates, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got map[string]float64
	found, err := c.Get("rates", &got)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got["divine"] != 320 {
		t.Errorf("Expected 320, got %v", got["divine"])
	}

	found, err = c.Get("missing", &got)
	if err != nil || found {
		t.Errorf("missing key: found=%v err=%v", found, err)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Put("short", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("forever", "v", 0); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)

	var s string
	if found, _ := c.Get("short", &s); found {
		t.Error("expected short entry to expire")
	}
	if found, _ := c.Get("forever", &s); !found {
		t.Error("zero TTL should never expire")
	}
	if age, ok := c.Age("forever"); !ok || age != 2*time.Minute {
		t.Errorf("Age = %v, %v", age, ok)
	}
	if _, ok := c.Age("short"); ok {
		t.Error("expired entry should have been dropped")
	}
}

func TestCache_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")

	c1, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c1.Put("k", 42, time.Hour); err != nil {
		t.Fatal(err)
	}

	c2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	var v int
	if found, err := c2.Get("k", &v); err != nil || !found || v != 42 {
		t.Errorf("reloaded Get = %v, %v, %v", v, found, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after flush")
	}
}

func TestCache_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := New(path)
	if err != nil {
		t.Fatalf("corrupt cache should not fail: %v", err)
	}
	var v string
	if found, _ := c.Get("anything", &v); found {
		t.Error("expected empty cache")
	}
}

func TestCache_ClearAndRemove(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := c.Put(fmt.Sprintf("k%d", i), i, time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Remove("k0"); err != nil {
		t.Fatal(err)
	}
	var v int
	if found, _ := c.Get("k0", &v); found {
		t.Error("k0 should be removed")
	}
	if found, _ := c.Get("k1", &v); !found {
		t.Error("k1 should remain")
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if found, _ := c.Get("k1", &v); found {
		t.Error("cache should be empty after Clear")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			if err := c.Put(key, i, time.Hour); err != nil {
				t.Errorf("Put: %v", err)
			}
			var v int
			_, _ = c.Get(key, &v)
		}(i)
	}
	wg.Wait()
}

func TestKeys(t *testing.T) {
	if got := RatesKey("Fate of the Vaal"); got != "rates|v1|fate of the vaal" {
		t.Errorf("RatesKey = %q", got)
	}

	q1 := map[string]any{"type": "Gold Ring"}
	q2 := map[string]any{"type": "Gold Ring"}
	q3 := map[string]any{"type": "Ruby Ring"}
	if StatsKey("L", q1) != StatsKey("L", q2) {
		t.Error("equal queries should share a key")
	}
	if StatsKey("L", q1) == StatsKey("L", q3) {
		t.Error("different queries should not share a key")
	}
}
