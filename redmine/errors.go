package redmine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/minecart-io/minecart/policy"
)

// ErrAuth marks an authentication rejection (HTTP 401/403).
// Credential errors are configuration errors, not transient: they are
// never retried and always fatal for the whole run.
var ErrAuth = errors.New("authentication rejected")

// StatusError is a non-2xx HTTP response from the remote service.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Code, e.URL)
}

// newStatusError builds the error for a failed response, wrapping
// authentication rejections with ErrAuth.
func newStatusError(code int, url string) error {
	err := &StatusError{Code: code, URL: url}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrAuth, err)
	}
	return err
}

// Classify maps a transport error onto the retry taxonomy:
// auth rejection is fatal, 4xx is permanent, and network faults, timeouts,
// and 5xx are retryable. Unrecognized errors default to retryable.
func Classify(err error) policy.Class {
	switch {
	case errors.Is(err, ErrAuth):
		return policy.Fatal
	case errors.Is(err, context.Canceled):
		return policy.Fatal
	case errors.Is(err, context.DeadlineExceeded):
		return policy.Retryable
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code >= 500 {
			return policy.Retryable
		}
		return policy.Permanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return policy.Retryable
	}

	return policy.Retryable
}
