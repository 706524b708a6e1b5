// Package resilience classifies upstream failures and retries the
// transient ones with exponential backoff.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// APIError wraps a non-success HTTP response from an upstream service.
type APIError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError wraps an upstream failure with its HTTP status code.
func NewAPIError(service string, statusCode int, err error) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Err: err}
}

// IsRateLimited reports whether the error indicates the provider is
// throttling or rejecting credentials. The search stage falls back to the
// secondary provider only for these errors.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		switch ae.StatusCode {
		case 401, 403, 429:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"429", "rate limit", "too many requests", "quota", "unauthorized", "invalid api key", "forbidden"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransient reports whether the error is safe to retry: 5xx/429/408
// statuses, network timeouts, connection resets, or messages matching
// known transient patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ae *APIError
	if errors.As(err, &ae) {
		switch ae.StatusCode {
		case 408, 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"tls handshake timeout",
		"no such host",
		"server closed idle connection",
		"rate limit",
		"429",
		"502",
		"503",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
