package coingecko

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTransient   ErrorKind = "transient"
	KindNotFound    ErrorKind = "not_found"
	KindProvider    ErrorKind = "provider_error"
)

// FetchError is the classified failure surfaced by the provider
// client after its in-cycle retry budget is spent.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Asset  string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("coingecko: %s fetching %q (status %d): %v", e.Kind, e.Asset, e.Status, e.Err)
	}
	return fmt.Sprintf("coingecko: %s fetching %q: %v", e.Kind, e.Asset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may succeed on a later
// attempt. NotFound is permanent.
func (e *FetchError) Retryable() bool {
	return e.Kind != KindNotFound
}

func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusNotFound:
		return KindNotFound
	default:
		return KindProvider
	}
}
