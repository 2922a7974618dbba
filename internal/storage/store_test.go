package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func setupSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLStore(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// backends runs fn against every Backend implementation.
func backends(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Run("bolt", func(t *testing.T) { fn(t, setupTestStore(t)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, setupSQLStore(t)) })
}

func TestBackend_ReadWrite(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		require.NoError(t, b.Write("watchlist", []byte(`[{"id":42}]`)))

		data, err := b.Read("watchlist")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":42}]`, string(data))

		require.NoError(t, b.Write("watchlist", []byte(`[]`)))
		data, err = b.Read("watchlist")
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})
}

func TestBackend_NotFound(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		_, err := b.Read("missing")
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})
}

func TestBackend_Delete(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		require.NoError(t, b.Write("k", []byte("v")))
		require.NoError(t, b.Delete("k"))

		_, err := b.Read("k")
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting a missing key is not an error.
		assert.NoError(t, b.Delete("k"))
	})
}

func TestBackend_ConcurrentWrites(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, b.Write(fmt.Sprintf("key-%d", i), []byte(fmt.Sprint(i))))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 20; i++ {
			data, err := b.Read(fmt.Sprintf("key-%d", i))
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprint(i), string(data))
		}
	})
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := NewBoltStore(path, time.Second)
	require.NoError(t, err)
	require.NoError(t, store.Write("watchlist", []byte("persisted")))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path, time.Second)
	require.NoError(t, err)
	defer store.Close()

	data, err := store.Read("watchlist")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(data))
}

func TestBoltStore_Memory(t *testing.T) {
	store, err := NewBoltStore(":memory:", 0)
	require.NoError(t, err)

	require.NoError(t, store.Write("a", []byte("b")))
	data, err := store.Read("a")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	assert.NoError(t, store.Close())
}

func TestBoltStore_CacheKeysAreSeparate(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.Write("603", []byte("kv")))
	require.NoError(t, store.Write(CachePrefix+"603", []byte("cache")))

	kv, err := store.Read("603")
	require.NoError(t, err)
	cached, err := store.Read(CachePrefix + "603")
	require.NoError(t, err)

	assert.Equal(t, "kv", string(kv))
	assert.Equal(t, "cache", string(cached))
}

func TestBoltStore_PruneCache(t *testing.T) {
	store := setupTestStore(t)
	cache := NewCache(store, 0)

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }
	require.NoError(t, cache.Put("1", map[string]int{"id": 1}))
	cache.now = func() time.Time { return base.Add(48 * time.Hour) }
	require.NoError(t, cache.Put("2", map[string]int{"id": 2}))
	require.NoError(t, store.Write(CachePrefix+"junk", []byte("not json")))

	removed, err := store.PruneCache(base.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	var v map[string]int
	ok, err := cache.Get("2", &v)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = cache.Get("1", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		driver  string
		path    string
		wantErr bool
	}{
		{"bolt", filepath.Join(dir, "a.db"), false},
		{"", filepath.Join(dir, "b.db"), false},
		{"sqlite", filepath.Join(dir, "c.sqlite"), false},
		{"sqlite", ":memory:", false},
		{"postgres", filepath.Join(dir, "d"), true},
	}

	for _, tt := range tests {
		t.Run(tt.driver+"/"+filepath.Base(tt.path), func(t *testing.T) {
			b, err := Open(tt.driver, tt.path, time.Second)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer b.Close()
			require.NoError(t, b.Write("k", []byte("v")))
		})
	}
}
