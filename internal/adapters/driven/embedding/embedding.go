// Package embedding wraps an embedding backend with batching, bounded
// retry, rate limiting and a process-local cache.
package embedding

import (
	"fmt"
)

// APIError is an error response from an embedding or generation API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the failure is worth retrying: rate
// limiting or a server-side error.
func (e *APIError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
