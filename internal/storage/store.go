package storage

import (
	"fmt"
	"os"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	kvBucket    = []byte("kv")
	cacheBucket = []byte("cache")
)

// BoltStore keeps small state (the watchlist) in the kv bucket and cached
// catalog responses in the cache bucket, keyed by everything after the prefix.
type BoltStore struct {
	db   *bolt.DB
	temp string
}

// NewBoltStore opens or creates the database at dbPath. The special path
// ":memory:" backs the store with a temporary file removed on Close.
func NewBoltStore(dbPath string, timeout time.Duration) (*BoltStore, error) {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}

	var temp string
	if dbPath == ":memory:" {
		f, err := os.CreateTemp("", "reel-*.db")
		if err != nil {
			return nil, fmt.Errorf("creating temp database: %w", err)
		}
		dbPath = f.Name()
		temp = dbPath
		f.Close()
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{kvBucket, cacheBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db, temp: temp}, nil
}

func (s *BoltStore) Close() error {
	err := s.db.Close()
	if s.temp != "" {
		os.Remove(s.temp)
	}
	return err
}

func route(key string) ([]byte, []byte) {
	if rest, ok := strings.CutPrefix(key, CachePrefix); ok {
		return cacheBucket, []byte(rest)
	}
	return kvBucket, []byte(key)
}

func (s *BoltStore) Read(key string) ([]byte, error) {
	bucket, k := route(key)
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(k)
		if data == nil {
			return ErrNotFound
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Write(key string, data []byte) error {
	bucket, k := route(key)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(k, data)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *BoltStore) Delete(key string) error {
	bucket, k := route(key)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(k)
	})
}

// PruneCache drops cache entries stored before cutoff and reports how many
// were removed.
func (s *BoltStore) PruneCache(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(cacheBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			stored, ok := storedAt(v)
			if ok && !stored.Before(cutoff) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
