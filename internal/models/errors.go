package models

import "errors"

// Error taxonomy shared across the registry, store, and HTTP layers.
// The HTTP layer maps these onto status codes and error envelopes.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)
