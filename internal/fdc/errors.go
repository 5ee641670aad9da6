package fdc

import "errors"

// Setup errors (fatal before any work starts).
var (
	ErrCredential = errors.New("API credential missing or rejected")
)

// Per-record errors (accumulated, never abort the run).
var (
	// ErrNotFound is a definitive miss; it is never retried.
	ErrNotFound = errors.New("record not found")

	// ErrTransient is returned after the retry policy is exhausted on
	// connection errors, 5xx responses or throttling.
	ErrTransient = errors.New("transient network error")
)
