package store

import (
	"time"
)

// InodeID identifies an inode within one Storage instance.
//
// IDs are opaque to callers, allocated by the storage and never reused while
// the inode they name is still referenced.
type InodeID uint64

// FileType identifies the kind of object an inode represents.
type FileType uint32

const (
	// FileTypeRegular is a regular file with byte content
	FileTypeRegular FileType = iota + 1

	// FileTypeDirectory is a directory holding named entries
	FileTypeDirectory

	// FileTypeSymlink is a symbolic link holding a target path string
	FileTypeSymlink
)

// String returns a short lowercase name for the type.
func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "file"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the supported file types.
func (t FileType) Valid() bool {
	return t == FileTypeRegular || t == FileTypeDirectory || t == FileTypeSymlink
}

// PermMask is the set of mode bits an inode may carry.
const PermMask uint32 = 0o7777

// Default permission bits used when a caller passes 0.
const (
	DefaultFileMode    uint32 = 0o644
	DefaultDirMode     uint32 = 0o755
	DefaultSymlinkMode uint32 = 0o777
)

// Inode is the storage-level record for one filesystem object.
//
// Invariants maintained by every Storage implementation:
//   - Nlink equals the number of directory entries naming this inode
//     (the root is anchored by the storage itself and reports 1)
//   - Directories are named by at most one entry
//   - Target is only set for symlinks
//   - Size is the content length for files, len(Target) for symlinks,
//     and 0 for directories
type Inode struct {
	// ID is the identifier of this inode
	ID InodeID

	// Type is the kind of object (file, directory, symlink)
	Type FileType

	// Mode holds the permission bits (masked by PermMask)
	Mode uint32

	// Nlink is the number of directory entries referencing this inode
	Nlink uint32

	// Size is the logical size in bytes
	Size uint64

	// Target is the literal symlink target (symlinks only)
	Target string

	// Crtime is the creation time
	Crtime time.Time

	// Mtime is the last content/entries modification time
	Mtime time.Time

	// Atime is the last access time
	Atime time.Time
}

// IsDir reports whether the inode is a directory.
func (i *Inode) IsDir() bool { return i.Type == FileTypeDirectory }

// IsRegular reports whether the inode is a regular file.
func (i *Inode) IsRegular() bool { return i.Type == FileTypeRegular }

// IsSymlink reports whether the inode is a symbolic link.
func (i *Inode) IsSymlink() bool { return i.Type == FileTypeSymlink }

// Clone returns a copy that callers can modify freely.
func (i *Inode) Clone() *Inode {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// SetAttrs selects the inode attributes to update.
//
// Only non-nil fields are applied. Size and link count are not settable here:
// they change through Truncate/WriteAt and Link/Unlink respectively.
type SetAttrs struct {
	// Mode replaces the permission bits
	Mode *uint32

	// Atime replaces the access time
	Atime *time.Time

	// Mtime replaces the modification time
	Mtime *time.Time
}

// DirEntry is one named entry inside a directory.
type DirEntry struct {
	// Name is the entry name as stored (already normalized by the caller)
	Name string

	// ID is the inode the entry refers to
	ID InodeID
}
