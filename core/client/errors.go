package client

import (
	"errors"
	"fmt"
)

// APIError is a transport or server-side failure from the engine API.
// Callers own retry policy; the client never retries.
type APIError struct {
	StatusCode int
	Message    string
	RawBody    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("engine request failed: %s", e.Message)
	}
	return fmt.Sprintf("engine request failed: %d %s", e.StatusCode, e.Message)
}

// AuthError signals a 401-class response. It is never retried; the caller
// must trigger re-authentication.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication expired: %d %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err is, or wraps, an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
