package content

import "errors"

// ============================================================================
// Standard Content Store Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all content store implementations. Storages translate them into
// store.StoreError values (usually ErrStorageFailure).
//
// Implementations should wrap these errors with additional context:
//
//	if !exists {
//	    return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
//	}
var (
	// ErrContentNotFound indicates the requested content does not exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidOffset indicates the offset is negative or overflows.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrIntegrityCheckFailed indicates stored content does not match its digest.
	//
	// This indicates corruption of the storage medium and is propagated to
	// callers as-is.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")
)
