package semantics

import (
	"github.com/marmos91/inodefs/pkg/store"
)

// Posix is the Unix-like policy: '/' separator, byte-exact case-sensitive names,
// symlinks and hard links supported.
type Posix struct {
	opts Options
}

// NewPosix returns a Posix policy with the given options.
func NewPosix(opts Options) Posix {
	return Posix{opts: opts}
}

func isSlash(r rune) bool { return r == '/' }

func (p Posix) Split(path string) ([]string, error) {
	return splitPath(path, isSlash, p.opts.DotSegments, p.opts.MaxPathDepth)
}

func (p Posix) IsAbsolute(path string) bool {
	return len(path) > 0 && path[0] == '/'
}

func (p Posix) NormalizeName(name string) string {
	return name
}

func (p Posix) ValidateName(name string) error {
	if err := validateCommon(name, isSlash); err != nil {
		return err
	}
	if len(name) > p.opts.maxNameLen() {
		return store.NewError(store.ErrInvalidName, "name is %d bytes (max %d)", len(name), p.opts.maxNameLen())
	}
	return nil
}

func (p Posix) SupportsSymlinks() bool  { return !p.opts.DisableSymlinks }
func (p Posix) SupportsHardLinks() bool { return !p.opts.DisableHardLinks }
func (p Posix) MaxSymlinkDepth() int    { return p.opts.maxSymlinkDepth() }
func (p Posix) DotSegments() DotMode    { return p.opts.DotSegments }
func (p Posix) MaxPathDepth() int       { return p.opts.MaxPathDepth }

// CheckPermission approves everything. Stricter policies wrap this one.
func (p Posix) CheckPermission(Op, string, *store.Inode) error {
	return nil
}

func (p Posix) CheckRenameOverwrite(src, dst store.FileType, dstEmpty bool) error {
	return checkRenameOverwrite(src, dst, dstEmpty)
}
