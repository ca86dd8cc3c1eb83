// Package common defines shared constants and sentinel errors used across
// the cache, sync and upload layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Local errors, detected before any network call is made.
	ErrValidation = errors.New("validation error")

	// Transport failure, timeout or offline. Retried by the upload pipeline.
	ErrTransient = errors.New("transient network error")

	// Definite failure reported by the document or object store. Never retried.
	ErrRejected = errors.New("rejected by remote store")

	// Rejection details.
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")

	// Malformed persisted cache data. Treated as a cache miss.
	ErrCacheCorrupted = errors.New("cache corrupted")

	// One or more files of an upload batch failed after retries.
	ErrPartialBatch = errors.New("partial batch failure")

	// Upload aborted by the caller.
	ErrCancelled = errors.New("cancelled")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsRejection reports whether err is a definite remote failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}
