package store

import (
	"errors"
	"fmt"
)

// StoreError reports a failing transition.
type StoreError struct {
	Namespace string
	Key       string // action key of the transition
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: transition %s: %v", e.Namespace, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// IsStoreError reports whether err wraps a *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
