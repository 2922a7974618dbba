package catalog

import (
	"fmt"
)

// NetworkError is a transport-level failure: DNS, connection, timeout, or an
// open circuit breaker.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from the catalog service.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("catalog returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("catalog returned %d", e.Status)
}

// Temporary reports whether a retry may succeed.
func (e *UpstreamError) Temporary() bool {
	return e.Status >= 500 || e.Status == 429
}
