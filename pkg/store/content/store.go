package content

import (
	"context"

	"github.com/google/uuid"
)

// ContentID identifies a content blob inside a ContentStore.
//
// Storages allocate one ContentID per file inode and keep it in the inode's
// private record. Hard links share the inode, hence the blob; copies get a
// fresh ContentID.
type ContentID string

// NewContentID returns a fresh random content identifier.
func NewContentID() ContentID {
	return ContentID(uuid.NewString())
}

// ============================================================================
// ContentStore Interface
// ============================================================================

// ContentStore holds the bytes of file inodes, addressed by ContentID.
//
// This is the lowest layer of the stack: it knows neither inodes nor paths.
// Storage implementations compose a ContentStore with their inode arena so the
// same inode storage can keep bytes in memory, in an embedded database or in an
// object store.
//
// Write Semantics:
//   - WriteAt creates the blob if it does not exist and zero-fills any gap
//   - Truncate creates the blob if it does not exist; growing zero-fills
//   - Delete is idempotent (deleting a missing blob succeeds)
//
// Read Semantics:
// ReadAt follows io.ReaderAt: a short read returns io.EOF together with the
// bytes that were available.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type ContentStore interface {
	// ReadAt reads len(p) bytes starting at offset.
	//
	// Returns ErrContentNotFound if the blob does not exist.
	ReadAt(ctx context.Context, id ContentID, p []byte, offset int64) (int, error)

	// WriteAt writes data at offset, creating the blob if needed.
	WriteAt(ctx context.Context, id ContentID, data []byte, offset int64) error

	// Truncate resizes the blob, creating it if needed.
	Truncate(ctx context.Context, id ContentID, size uint64) error

	// Size returns the blob length.
	//
	// Returns ErrContentNotFound if the blob does not exist.
	Size(ctx context.Context, id ContentID) (uint64, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, id ContentID) error
}
