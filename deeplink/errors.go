package deeplink

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured signals that the client has no base URL set.
	ErrNotConfigured = errors.New("deeplink: client is not configured")
	// ErrInvalidURL signals that a URL could not be parsed or carries no short id.
	ErrInvalidURL = errors.New("deeplink: invalid url")
	// ErrInvalidRequest signals that a request could not be built from the given input.
	ErrInvalidRequest = errors.New("deeplink: invalid request")
	// ErrInvalidResponse signals that the backend returned a body that could not be decoded.
	ErrInvalidResponse = errors.New("deeplink: invalid response")
	// ErrNetwork signals a transport-level failure.
	ErrNetwork = errors.New("deeplink: network error")
	// ErrUnauthorized corresponds to HTTP 401.
	ErrUnauthorized = errors.New("deeplink: unauthorized")
	// ErrRateLimited corresponds to HTTP 429.
	ErrRateLimited = errors.New("deeplink: rate limited")
	// ErrServer corresponds to any other HTTP status >= 400.
	ErrServer = errors.New("deeplink: server error")
	// ErrNoData signals that the backend has no record for the requested id.
	ErrNoData = errors.New("deeplink: no data")
)

// errorFromStatus maps a non-2xx HTTP status onto the error taxonomy.
func errorFromStatus(status int) error {
	switch {
	case status == 401:
		return ErrUnauthorized
	case status == 404:
		return ErrNoData
	case status == 429:
		return ErrRateLimited
	case status >= 400:
		return fmt.Errorf("%w: status %d", ErrServer, status)
	default:
		return nil
	}
}
