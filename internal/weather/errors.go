package weather

import (
	"errors"
	"fmt"
)

// Classification sentinels for client failures. The pipeline matches on these
// with errors.Is; anything else coming out of a fetch is a generic API error.
var (
	// ErrRateLimited indicates the vendor rejected the request with HTTP 429.
	ErrRateLimited = errors.New("api rate limit exceeded")

	// ErrUnauthorized indicates the vendor rejected the API key with HTTP 401.
	ErrUnauthorized = errors.New("api authentication failed")
)

// APIError carries the HTTP detail of a classified vendor failure. Clients
// wrap it around one of the sentinels above (or return it bare for generic
// failures) so callers can unwrap both the class and the detail.
type APIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v (status %d)", e.Err, e.StatusCode)
	}
	return e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}
