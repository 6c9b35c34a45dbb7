package store

// ============================================================================
// Storage Interface
// ============================================================================

// Storage owns inode records, directory entries and file content.
//
// A Storage has no knowledge of paths: every operation addresses inodes by
// InodeID and entries by (parent, name). Path syntax, name normalization,
// symlink resolution and permission policy all live above it, in the engine.
//
// Names passed to Link, Unlink and Lookup are compared byte-for-byte. The
// engine normalizes them (case folding, etc.) before they reach the storage.
//
// Link Count Lifecycle:
//
//	CreateInode   -> Nlink = 0 (unreachable)
//	Link          -> Nlink + 1
//	Unlink        -> Nlink - 1 (the inode is NOT deleted)
//	DeleteInode   -> only allowed at Nlink = 0, releases content
//
// The caller (engine) decides when to delete an inode after unlinking it and
// must verify that a directory is empty before unlinking it.
//
// Content:
// File content is addressed indirectly: the storage keeps a content reference per
// file inode and shares it between every entry that links that inode. A write
// through one hard-linked entry is therefore visible through all of them.
//
// Atomicity:
// Each method is atomic on its own. Multi-step sequences (unlink then link during
// rename) are atomic relative to a single caller because the engine and container
// assume exclusive access for the duration of a call.
//
// Errors:
// Business errors are *StoreError values with a precise ErrorCode. Medium failures
// are reported with ErrStorageFailure wrapping the underlying error.
type Storage interface {
	// Root returns the ID of the root directory.
	//
	// The root always exists, is always a directory and cannot be deleted.
	Root() InodeID

	// CreateInode allocates a fresh inode with link count 0.
	//
	// Parameters:
	//   - fileType: FileTypeRegular, FileTypeDirectory or FileTypeSymlink
	//   - mode: permission bits (masked with PermMask)
	//   - target: symlink target (must be empty for other types)
	//
	// Returns:
	//   - InodeID: the new inode
	//   - error: ErrInvalidArgument for an unknown type or a stray target
	CreateInode(fileType FileType, mode uint32, target string) (InodeID, error)

	// GetInode returns a copy of the inode record.
	//
	// Returns ErrNotFound if the inode does not exist.
	GetInode(id InodeID) (*Inode, error)

	// UpdateInode applies the selected attributes.
	//
	// Returns ErrNotFound if the inode does not exist.
	UpdateInode(id InodeID, attrs *SetAttrs) error

	// DeleteInode physically removes an inode and releases its content.
	//
	// Returns ErrNotFound if the inode does not exist, ErrInodeInUse if its link
	// count is greater than zero (this includes the root).
	DeleteInode(id InodeID) error

	// Link adds the entry (parent, name) -> child and increments child's link count.
	//
	// Returns:
	//   - ErrNotFound if parent or child does not exist
	//   - ErrNotADirectory if parent is not a directory
	//   - ErrEntryExists if name is already taken in parent
	//   - ErrIsADirectory if child is a directory that already has an entry
	Link(parent InodeID, name string, child InodeID) error

	// Unlink removes the entry (parent, name) and decrements the child's link count.
	//
	// A directory is unlinked whether or not it has entries; its children stay
	// attached to it so that it can be linked again elsewhere (rename).
	//
	// Returns the child ID, or ErrEntryNotFound if there is no such entry
	// (ErrNotADirectory if parent is not a directory).
	Unlink(parent InodeID, name string) (InodeID, error)

	// Lookup resolves a name inside a directory.
	//
	// Returns ErrEntryNotFound if there is no such entry, ErrNotADirectory if
	// parent is not a directory.
	Lookup(parent InodeID, name string) (InodeID, error)

	// ReadDir lists the entries of a directory sorted by name.
	//
	// The listing is a snapshot: it is stable for one observation even if the
	// directory changes afterwards.
	ReadDir(dir InodeID) ([]DirEntry, error)

	// ReadAt reads file content with io.ReaderAt semantics.
	//
	// When fewer than len(buf) bytes are available the call returns the bytes read
	// and io.EOF. Returns ErrNotAFile for directories and symlinks.
	ReadAt(id InodeID, buf []byte, offset int64) (int, error)

	// WriteAt writes data at offset, zero-filling any gap past the current end.
	//
	// Returns the number of bytes written (len(data) on success).
	WriteAt(id InodeID, data []byte, offset int64) (int, error)

	// Truncate sets the content size: growing zero-fills, shrinking discards.
	Truncate(id InodeID, size uint64) error

	// Sync flushes pending state to the durable medium.
	//
	// A no-op is valid for volatile storage.
	Sync() error

	// Close releases resources. The storage must not be used afterwards.
	Close() error
}
