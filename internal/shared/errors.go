package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrMissingPrincipal occurs when a mutating request carries no identity headers.
	ErrMissingPrincipal = errors.New("principal required")
)
