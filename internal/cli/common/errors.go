// Package common defines shared constants and sentinel errors used across
// the client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Construction-time errors: fatal, propagate to the caller.
	ErrConfig   = errors.New("invalid configuration")
	ErrLockHeld = errors.New("vault lock held by another process")

	// Storage errors propagate: local data integrity cannot be guaranteed.
	ErrStorage = errors.New("storage failure")

	// Soft sync failures: degrade to "no data" at the API boundary.
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrIdentityMismatch   = errors.New("device identity mismatch")
	ErrServerFatal        = errors.New("server self-reported fatal")
)
