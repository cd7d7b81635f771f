package localstore

import "fmt"

// StorageError wraps a local persistence failure.
//
// It is fatal to the single operation but not to the process: in-memory
// state held by callers is unaffected until their next reload. There is no
// lower fallback tier, so callers always propagate it.
type StorageError struct {
	// Op names the failed store operation ("write tasks", "get setting", ...).
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("local store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}
