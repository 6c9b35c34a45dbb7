package vfs

import (
	"github.com/marmos91/inodefs/pkg/store"
)

// PathError records an error and the operation and path(s) that caused it.
//
// Err is the storage, semantics or capacity error unchanged, so callers can
// match it with errors.Is / errors.As or store.CodeOf.
type PathError struct {
	// Op is the operation name ("read", "rename", ...)
	Op string

	// Path is the path the operation was called with
	Path string

	// NewPath is the second path for two-path operations (rename, copy, link)
	NewPath string

	// Err is the underlying error
	Err error
}

func (e *PathError) Error() string {
	if e.NewPath != "" {
		return e.Op + " " + e.Path + " -> " + e.NewPath + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Code returns the ErrorCode carried by the wrapped error, or
// ErrStorageFailure for uncoded errors.
func (e *PathError) Code() store.ErrorCode {
	if code, ok := store.CodeOf(e.Err); ok {
		return code
	}
	return store.ErrStorageFailure
}
