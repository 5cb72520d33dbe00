package tally

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Mailbox implementations wrap their failures in a FetchError
// carrying one of these so the run can decide between abort and skip.
var (
	// ErrAuthExpired means the credential is invalid and cannot be refreshed.
	// It is the only kind that aborts a run.
	ErrAuthExpired = errors.New("authorization expired")
	// ErrTransient covers network and service failures, including timeouts.
	ErrTransient = errors.New("transient fetch failure")
	// ErrNotFound means the message vanished between list and fetch.
	ErrNotFound = errors.New("message not found")
	// ErrMalformedHeader means the From value could not be normalized.
	ErrMalformedHeader = errors.New("malformed From header")
)

// FetchError annotates a mailbox failure with the operation, the message id
// (when there is one) and its kind.
type FetchError struct {
	Op   string
	Ref  string
	Kind error
	Err  error
}

func (e *FetchError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Ref, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is worth retrying at the caller's discretion.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsAuth reports whether err is fatal for the run.
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}
