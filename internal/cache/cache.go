// Package cache is a small JSON file cache with per-entry TTLs. It holds
// snapshots that are expensive to rebuild, such as currency rate tables and
// modifier statistics runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTL       time.Duration   `json:"ttl"`
}

func (e Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.Timestamp) > e.TTL
}

type Cache struct {
	path    string
	entries map[string]Entry
	now     func() time.Time
	mu      sync.RWMutex
	fileMu  sync.Mutex
}

// New opens the cache file at path. A missing file starts empty and a
// corrupt one is discarded.
func New(path string) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string]Entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &c.entries); err != nil {
			c.entries = make(map[string]Entry)
		}
	}
	return c, nil
}

// Get decodes the entry under key into target. Expired entries are dropped
// and reported as missing.
func (c *Cache) Get(key string, target any) (bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		if e, exists := c.entries[key]; exists && e.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(entry.Data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache entry: %w", err)
	}
	return true, nil
}

// Age returns how long ago key was stored.
func (c *Cache) Age(key string) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return c.now().Sub(entry.Timestamp), true
}

// Put stores value under key and flushes the file. ttl <= 0 never expires.
func (c *Cache) Put(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      data,
		Timestamp: c.now(),
		TTL:       ttl,
	}
	c.mu.Unlock()

	return c.flush()
}

// Clear removes all cache entries
func (c *Cache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()
	return c.flush()
}

// Remove deletes a specific cache entry
func (c *Cache) Remove(key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return c.flush()
}

// flush writes through a temp file so readers never see a partial file.
func (c *Cache) flush() error {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// BuildKey creates semantic cache keys
func BuildKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// RatesKey is the key of the persisted currency table for a league.
func RatesKey(league string) string {
	return BuildKey("rates", "v1", strings.ToLower(league))
}

// StatsKey is the key of a modifier statistics run. The query document is
// hashed so equivalent queries share an entry.
func StatsKey(league string, query any) string {
	data, _ := json.Marshal(query)
	sum := sha256.Sum256(data)
	return BuildKey("stats", strings.ToLower(league), hex.EncodeToString(sum[:8]))
}
