// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	// ErrNotFound indicates a remote or local document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates the remote service rejected our credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited indicates the remote service is throttling requests.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotTracked indicates a local file has no metadata entry in the store.
	ErrNotTracked = errors.New("not tracked")
	// ErrConflict indicates a concurrent modification was detected.
	ErrConflict = errors.New("conflict")
)
