package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Read when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Backend is a durable key/value byte store. Keys are opaque strings; values
// are written whole and read back unchanged.
type Backend interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	Delete(key string) error
	Close() error
}

// Open selects a backend by driver name ("bolt" or "sqlite").
func Open(driver, path string, timeout time.Duration) (Backend, error) {
	switch driver {
	case "", "bolt":
		return NewBoltStore(path, timeout)
	case "sqlite":
		return NewSQLStore(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
