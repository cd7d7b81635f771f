package remotestore

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by update and explicit-get operations when the
// referenced document does not exist under the session's user. It is
// surfaced to the caller, not retried; delete operations never return it.
var ErrNotFound = errors.New("remote store: document not found")

// ErrNoSession is returned when a call is made without a usable session.
// The CRUD layer normally prevents this by routing sessionless calls to
// the local store.
var ErrNoSession = errors.New("remote store: no authenticated session")

// UnavailableError wraps a network or auth failure reaching the remote
// store. The CRUD layer treats it as "operate local-only for this call";
// the sync engine treats it as fatal to the classification attempt.
type UnavailableError struct {
	// Op names the failed operation ("create task", "list groups", ...).
	Op  string
	Err error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("remote store unavailable: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err represents a soft remote failure that
// should degrade to local-only operation.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue) || errors.Is(err, ErrNoSession)
}
