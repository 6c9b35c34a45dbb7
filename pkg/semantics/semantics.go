// Package semantics defines the path and naming policies consulted by the
// engine: how paths split into components, which names are legal, how names
// compare, which link kinds exist and which operations are permitted.
//
// A Semantics value is stateless and side-effect free. It never sees the
// storage; the engine passes it the inode it is about to act on when a
// decision depends on it.
package semantics

import (
	"github.com/marmos91/inodefs/pkg/store"
)

// DefaultMaxSymlinkDepth is the symlink hop bound used when none is configured.
const DefaultMaxSymlinkDepth = 40

// DefaultMaxNameLen is the longest entry name accepted by default.
const DefaultMaxNameLen = 255

// DotMode selects how "." and ".." path segments are resolved.
type DotMode int

const (
	// DotLexical rewrites dot segments on the path string before resolution,
	// like path.Clean: "/a/link/../b" is "/a/b" whatever "link" points to.
	// Relative symlink targets are joined to the containing directory path and
	// cleaned the same way.
	DotLexical DotMode = iota

	// DotPhysical keeps ".." as a component; the resolver moves to the parent
	// of the directory actually reached, after following symlinks.
	DotPhysical
)

// String returns the config name of the mode.
func (m DotMode) String() string {
	if m == DotPhysical {
		return "physical"
	}
	return "lexical"
}

// ParseDotMode converts a config name to a DotMode.
func ParseDotMode(s string) (DotMode, error) {
	switch s {
	case "", "lexical":
		return DotLexical, nil
	case "physical":
		return DotPhysical, nil
	default:
		return DotLexical, store.NewError(store.ErrInvalidArgument, "unknown dot segment mode %q", s)
	}
}

// Op identifies an engine operation for permission checks.
type Op int

const (
	OpStat Op = iota
	OpRead
	OpReadDir
	OpReadLink
	OpWrite
	OpCreate
	OpMkdir
	OpRemove
	OpRename
	OpSymlink
	OpLink
	OpSetAttr
)

var opNames = map[Op]string{
	OpStat:     "stat",
	OpRead:     "read",
	OpReadDir:  "readdir",
	OpReadLink: "readlink",
	OpWrite:    "write",
	OpCreate:   "create",
	OpMkdir:    "mkdir",
	OpRemove:   "remove",
	OpRename:   "rename",
	OpSymlink:  "symlink",
	OpLink:     "link",
	OpSetAttr:  "setattr",
}

// String returns the operation name.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

// Mutating reports whether the operation changes the tree or content.
func (o Op) Mutating() bool {
	return o >= OpWrite
}

// Semantics is the policy interface consulted by the engine.
type Semantics interface {
	// Split breaks an absolute path into entry names.
	//
	// Empty segments and "." are dropped. ".." is rewritten or kept according to
	// DotSegments. Returns ErrInvalidPath for relative paths or paths deeper than
	// MaxPathDepth.
	Split(path string) ([]string, error)

	// IsAbsolute reports whether path starts at the root.
	IsAbsolute(path string) bool

	// NormalizeName maps a name to the key it is stored and looked up under.
	NormalizeName(name string) string

	// ValidateName classifies an illegal entry name with ErrInvalidName.
	// It never rewrites the name.
	ValidateName(name string) error

	// SupportsSymlinks reports whether symlinks may be created.
	SupportsSymlinks() bool

	// SupportsHardLinks reports whether hard links may be created.
	SupportsHardLinks() bool

	// MaxSymlinkDepth is the number of symlink hops one resolution may take.
	MaxSymlinkDepth() int

	// DotSegments selects lexical or physical dot-segment handling.
	DotSegments() DotMode

	// MaxPathDepth is the maximum number of components in a path (0 = unlimited).
	MaxPathDepth() int

	// CheckPermission approves or denies op on the inode reached through path.
	// For creations the inode is the parent directory.
	CheckPermission(op Op, path string, ino *store.Inode) error

	// CheckRenameOverwrite decides whether an entry of type src may replace an
	// existing entry of type dst.
	CheckRenameOverwrite(src, dst store.FileType, dstEmpty bool) error
}

// Options holds the tunables shared by the built-in policies.
type Options struct {
	// MaxNameLen is the longest accepted entry name (0 = DefaultMaxNameLen)
	MaxNameLen int `mapstructure:"max_name_len"`

	// MaxSymlinkDepth bounds symlink hops (0 = DefaultMaxSymlinkDepth)
	MaxSymlinkDepth int `mapstructure:"max_symlink_depth"`

	// MaxPathDepth bounds path components (0 = unlimited)
	MaxPathDepth int `mapstructure:"max_path_depth"`

	// DotSegments selects lexical or physical dot-segment handling
	DotSegments DotMode `mapstructure:"-"`

	// DisableSymlinks refuses symlink creation
	DisableSymlinks bool `mapstructure:"disable_symlinks"`

	// DisableHardLinks refuses hard link creation
	DisableHardLinks bool `mapstructure:"disable_hard_links"`
}

func (o Options) maxNameLen() int {
	if o.MaxNameLen <= 0 {
		return DefaultMaxNameLen
	}
	return o.MaxNameLen
}

func (o Options) maxSymlinkDepth() int {
	if o.MaxSymlinkDepth <= 0 {
		return DefaultMaxSymlinkDepth
	}
	return o.MaxSymlinkDepth
}

// checkRenameOverwrite is the overwrite rule shared by every built-in policy.
//
// Files and symlinks are interchangeable leaves; directories only replace
// empty directories.
func checkRenameOverwrite(src, dst store.FileType, dstEmpty bool) error {
	srcDir := src == store.FileTypeDirectory
	dstDir := dst == store.FileTypeDirectory

	switch {
	case srcDir && dstDir:
		if !dstEmpty {
			return store.NewError(store.ErrDirectoryNotEmpty, "target directory is not empty")
		}
		return nil
	case srcDir != dstDir:
		return store.NewError(store.ErrAlreadyExists, "cannot replace a %s with a %s", dst, src)
	default:
		return nil
	}
}
