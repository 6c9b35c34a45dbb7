package store

import (
	"errors"
	"fmt"
	"io/fs"
)

// StoreError represents a domain error from storage, engine or container operations.
//
// These are business logic errors (entry not found, directory not empty, etc.)
// as opposed to infrastructure errors (disk failure, network failure). Infrastructure
// errors are carried with Code = ErrStorageFailure and the original error in Err,
// so callers can still inspect them with errors.Is / errors.As.
//
// Wrapping layers (engine, container) never replace a StoreError; they attach
// path and operation context around it (see vfs.PathError).
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Err is the underlying cause, if any (always set for ErrStorageFailure)
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
//
// Two StoreErrors match when their codes are equal. The io/fs sentinel errors
// match the codes they naturally describe, so callers that only know the
// standard library can write errors.Is(err, fs.ErrNotExist).
func (e *StoreError) Is(target error) bool {
	var other *StoreError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}

	switch target {
	case fs.ErrNotExist:
		return e.Code == ErrNotFound || e.Code == ErrEntryNotFound
	case fs.ErrExist:
		return e.Code == ErrAlreadyExists || e.Code == ErrEntryExists
	case fs.ErrPermission:
		return e.Code == ErrPermissionDenied
	case fs.ErrInvalid:
		return e.Code == ErrInvalidName || e.Code == ErrInvalidPath || e.Code == ErrInvalidArgument
	}
	return false
}

// ErrorCode represents the category of a filesystem error.
type ErrorCode int

const (
	// ErrNotFound indicates the inode or path does not exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates the destination path already exists
	ErrAlreadyExists

	// ErrNotAFile indicates the operation expected a regular file
	ErrNotAFile

	// ErrNotADirectory indicates the operation expected a directory
	ErrNotADirectory

	// ErrNotASymlink indicates the operation expected a symbolic link
	ErrNotASymlink

	// ErrIsADirectory indicates a directory was given where it is not allowed
	// (hard-linking a directory, removing a directory as a file)
	ErrIsADirectory

	// ErrDirectoryNotEmpty indicates a directory still has entries
	ErrDirectoryNotEmpty

	// ErrWouldCreateCycle indicates a rename would make a directory its own ancestor
	ErrWouldCreateCycle

	// ErrSymlinkLoop indicates symlink resolution exceeded the hop bound
	ErrSymlinkLoop

	// ErrEntryExists indicates a directory entry with that name already exists
	ErrEntryExists

	// ErrEntryNotFound indicates a directory has no entry with that name
	ErrEntryNotFound

	// ErrInodeInUse indicates an inode still has links and cannot be deleted
	ErrInodeInUse

	// ErrInvalidName indicates a name rejected by the naming policy
	ErrInvalidName

	// ErrInvalidPath indicates a malformed path (relative, escapes root, too deep)
	ErrInvalidPath

	// ErrPermissionDenied indicates the permission hook rejected the operation
	ErrPermissionDenied

	// ErrCapacityExceeded indicates a configured quota would be exceeded
	ErrCapacityExceeded

	// ErrNotSupported indicates the semantics or storage does not support the operation
	ErrNotSupported

	// ErrInvalidArgument indicates invalid parameters (negative offset, bad mode)
	ErrInvalidArgument

	// ErrStorageFailure indicates an infrastructure failure in the storage medium
	ErrStorageFailure
)

var codeNames = map[ErrorCode]string{
	ErrNotFound:          "not found",
	ErrAlreadyExists:     "already exists",
	ErrNotAFile:          "not a file",
	ErrNotADirectory:     "not a directory",
	ErrNotASymlink:       "not a symlink",
	ErrIsADirectory:      "is a directory",
	ErrDirectoryNotEmpty: "directory not empty",
	ErrWouldCreateCycle:  "would create cycle",
	ErrSymlinkLoop:       "too many levels of symbolic links",
	ErrEntryExists:       "entry exists",
	ErrEntryNotFound:     "entry not found",
	ErrInodeInUse:        "inode in use",
	ErrInvalidName:       "invalid name",
	ErrInvalidPath:       "invalid path",
	ErrPermissionDenied:  "permission denied",
	ErrCapacityExceeded:  "capacity exceeded",
	ErrNotSupported:      "operation not supported",
	ErrInvalidArgument:   "invalid argument",
	ErrStorageFailure:    "storage failure",
}

// String returns the canonical description of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error code %d", int(c))
}

// NewError builds a StoreError with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *StoreError {
	return &StoreError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Failure wraps an infrastructure error as ErrStorageFailure.
//
// A nil err yields nil, so callers can write `return store.Failure("op", err)`.
// Errors that already carry a StoreError are returned unchanged.
func Failure(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded Coded
	if errors.As(err, &coded) {
		return err
	}
	return &StoreError{
		Code:    ErrStorageFailure,
		Message: op,
		Err:     err,
	}
}

// Coded is implemented by errors that carry an ErrorCode.
//
// StoreError implements it; so do richer error types in other packages
// (container.CapacityError) that need extra fields.
type Coded interface {
	error
	ErrorCode() ErrorCode
}

// ErrorCode implements Coded.
func (e *StoreError) ErrorCode() ErrorCode {
	return e.Code
}

// CodeOf extracts the first ErrorCode found in an error chain.
func CodeOf(err error) (ErrorCode, bool) {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
