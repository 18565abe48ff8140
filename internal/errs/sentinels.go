// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across session/api layers.
var (
	// ErrUnauthorized indicates the API no longer accepts the session credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates a request exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrUnavailable indicates a transport-level failure (DNS, refused connection).
	ErrUnavailable = errors.New("server unavailable")

	// ErrBadResponse indicates a server body that could not be decoded.
	ErrBadResponse = errors.New("bad response")

	// ErrValidation indicates a payload rejected locally before any network call.
	ErrValidation = errors.New("validation failed")
)
