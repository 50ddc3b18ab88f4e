// Package automation drives an authenticated browser session against the
// ticketing web UI to perform deletions the REST API does not expose.
package automation

import (
	"context"
	"errors"
	"time"

	"github.com/minecart-io/minecart/policy"
)

var (
	// ErrLoginFailed: the login form was submitted but the session did not
	// leave the login page. Always fatal, never retried.
	ErrLoginFailed = errors.New("browser login failed")

	// ErrElementMissing: the target element is not on the current page.
	ErrElementMissing = errors.New("element not found")

	// ErrSessionUnusable: the browser session is gone and cannot serve
	// further operations.
	ErrSessionUnusable = errors.New("browser session unusable")

	// ErrNoDialog: no confirmation dialog appeared within the wait.
	ErrNoDialog = errors.New("no confirmation dialog")
)

// Driver abstracts the browser session so the deletion flow can be
// exercised without a real browser.
type Driver interface {
	// Open starts the browser session.
	Open(ctx context.Context) error
	// Login authenticates via the login form. Success means the session
	// navigated away from the login page.
	Login(ctx context.Context, username, password string, timeout time.Duration) error
	// Goto navigates to url and waits for the page to settle.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// Count returns how many elements match selector on the current page.
	Count(ctx context.Context, selector string, timeout time.Duration) (int, error)
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// AcceptDialog waits for a confirmation dialog to have been accepted.
	// Returns ErrNoDialog if none appeared within timeout.
	AcceptDialog(ctx context.Context, timeout time.Duration) error
	// Close tears the session down.
	Close() error
}

// Classify maps browser operation errors onto retry classes. Login and
// session failures end the run; everything else is assumed transient UI
// flakiness worth retrying.
func Classify(err error) policy.Class {
	switch {
	case errors.Is(err, ErrLoginFailed), errors.Is(err, ErrSessionUnusable):
		return policy.Fatal
	case errors.Is(err, context.Canceled):
		return policy.Fatal
	case errors.Is(err, ErrElementMissing):
		return policy.Permanent
	default:
		return policy.Retryable
	}
}
