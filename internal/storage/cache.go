package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CachePrefix namespaces cached catalog responses, e.g. "details/603".
const CachePrefix = "details/"

type cacheEntry struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

func storedAt(raw []byte) (time.Time, bool) {
	var e cacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return time.Time{}, false
	}
	return e.StoredAt, true
}

// Cache is a read-through JSON cache with a TTL on top of any Backend.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewCache wraps backend. A zero ttl disables expiry.
func NewCache(backend Backend, ttl time.Duration) *Cache {
	return &Cache{backend: backend, ttl: ttl, now: time.Now}
}

func cacheKey(id string) string {
	return CachePrefix + id
}

// Put stores v as JSON under id.
func (c *Cache) Put(id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	raw, err := json.Marshal(cacheEntry{StoredAt: c.now(), Data: data})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	return c.backend.Write(cacheKey(id), raw)
}

// Get decodes the entry for id into v. It reports false for missing,
// expired, or undecodable entries.
func (c *Cache) Get(id string, v any) (bool, error) {
	return c.get(id, v, true)
}

// GetStale is Get without the TTL check, for use when the source is unreachable.
func (c *Cache) GetStale(id string, v any) (bool, error) {
	return c.get(id, v, false)
}

func (c *Cache) get(id string, v any, fresh bool) (bool, error) {
	raw, err := c.backend.Read(cacheKey(id))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var e cacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false, nil
	}
	if fresh && c.ttl > 0 && c.now().Sub(e.StoredAt) > c.ttl {
		return false, nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return false, nil
	}
	return true, nil
}
