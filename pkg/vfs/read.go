package vfs

import (
	"errors"
	"io"
	"io/fs"

	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
)

// Entry describes one entry reached by ReadDir or Walk.
type Entry struct {
	// Name is the stored (normalized) entry name; empty for the root
	Name string

	// Parent is the directory holding the entry (the root for the root)
	Parent store.InodeID

	// Depth is the number of components from the root (0 for the root)
	Depth int

	// Inode is the entry's inode record
	Inode *store.Inode
}

// Location describes where a path lands without requiring the entry to exist.
type Location struct {
	// Parent is the directory that holds (or would hold) the entry
	Parent store.InodeID

	// Name is the normalized final name
	Name string

	// Depth is the number of components from the root to the entry
	Depth int

	// Inode is the existing entry (not followed), nil if absent
	Inode *store.Inode
}

// Stat returns the inode a path names, following a final symlink.
func (e *Engine[S, P]) Stat(path string) (*store.Inode, error) {
	r, err := e.stat(path, true)
	if err != nil {
		return nil, e.wrap("stat", path, err)
	}
	return r.ino, nil
}

// Lstat returns the inode a path names without following a final symlink.
func (e *Engine[S, P]) Lstat(path string) (*store.Inode, error) {
	r, err := e.stat(path, false)
	if err != nil {
		return nil, e.wrap("lstat", path, err)
	}
	return r.ino, nil
}

func (e *Engine[S, P]) stat(path string, follow bool) (*resolution, error) {
	r, err := e.resolve(path, follow)
	if err != nil {
		return nil, err
	}
	if err := e.check(semantics.OpStat, path, r.ino); err != nil {
		return nil, err
	}
	return r, nil
}

// Exists reports whether path names an existing entry (following symlinks).
//
// Missing entries and non-directory intermediates report false; other
// failures (symlink loops, storage errors) are returned.
func (e *Engine[S, P]) Exists(path string) (bool, error) {
	_, err := e.resolve(path, true)
	switch {
	case err == nil:
		return true, nil
	case store.IsCode(err, store.ErrNotFound), store.IsCode(err, store.ErrNotADirectory):
		return false, nil
	default:
		return false, e.wrap("exists", path, err)
	}
}

// Resolve returns the location of an existing entry.
func (e *Engine[S, P]) Resolve(path string, follow bool) (*Location, error) {
	r, err := e.resolve(path, follow)
	if err != nil {
		return nil, e.wrap("resolve", path, err)
	}
	return &Location{Parent: r.parent(), Name: r.name(), Depth: len(r.stack) - 1, Inode: r.ino}, nil
}

// Locate resolves the parent of path and reports whether the final entry exists.
//
// The final name is validated and normalized. A final symlink is not followed.
func (e *Engine[S, P]) Locate(path string) (*Location, error) {
	p, err := e.resolveParent(path)
	if err != nil {
		return nil, e.wrap("locate", path, err)
	}
	return &Location{Parent: p.dir.id(), Name: p.name, Depth: len(p.dir.stack), Inode: p.entry}, nil
}

// ReadFile returns the complete content of a file.
func (e *Engine[S, P]) ReadFile(path string) ([]byte, error) {
	r, err := e.openFile(semantics.OpRead, path)
	if err != nil {
		return nil, e.wrap("read", path, err)
	}

	buf := make([]byte, r.ino.Size)
	n, err := e.storage.ReadAt(r.id(), buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, e.wrap("read", path, err)
	}
	return buf[:n], nil
}

// ReadAt reads len(buf) bytes at offset with io.ReaderAt semantics.
func (e *Engine[S, P]) ReadAt(path string, buf []byte, offset int64) (int, error) {
	r, err := e.openFile(semantics.OpRead, path)
	if err != nil {
		return 0, e.wrap("read", path, err)
	}

	n, err := e.storage.ReadAt(r.id(), buf, offset)
	if errors.Is(err, io.EOF) {
		return n, io.EOF
	}
	return n, e.wrap("read", path, err)
}

// ReadDir lists a directory, sorted by name.
func (e *Engine[S, P]) ReadDir(path string) ([]Entry, error) {
	r, err := e.resolve(path, true)
	if err != nil {
		return nil, e.wrap("readdir", path, err)
	}
	if !r.ino.IsDir() {
		return nil, e.wrap("readdir", path, store.NewError(store.ErrNotADirectory, "not a directory"))
	}
	if err := e.check(semantics.OpReadDir, path, r.ino); err != nil {
		return nil, e.wrap("readdir", path, err)
	}

	entries, err := e.list(r.id(), len(r.stack))
	return entries, e.wrap("readdir", path, err)
}

// list loads the entries of a directory with their inodes.
func (e *Engine[S, P]) list(dir store.InodeID, depth int) ([]Entry, error) {
	dirents, err := e.storage.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		ino, err := e.storage.GetInode(d.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: d.Name, Parent: dir, Depth: depth, Inode: ino})
	}
	return entries, nil
}

// ReadLink returns the literal target of a symlink.
func (e *Engine[S, P]) ReadLink(path string) (string, error) {
	r, err := e.resolve(path, false)
	if err != nil {
		return "", e.wrap("readlink", path, err)
	}
	if !r.ino.IsSymlink() {
		return "", e.wrap("readlink", path, store.NewError(store.ErrNotASymlink, "not a symlink"))
	}
	if err := e.check(semantics.OpReadLink, path, r.ino); err != nil {
		return "", e.wrap("readlink", path, err)
	}
	return r.ino.Target, nil
}

// WalkFunc is called for every entry visited by Walk.
//
// Returning fs.SkipDir from a directory skips its children; any other error
// stops the walk and is returned by Walk.
type WalkFunc func(path string, entry Entry) error

// Walk visits path and everything below it depth-first, in name order.
//
// Symlinks are reported but never followed. A hard-linked file is visited
// once per entry.
func (e *Engine[S, P]) Walk(path string, fn WalkFunc) error {
	r, err := e.resolve(path, false)
	if err != nil {
		return e.wrap("walk", path, err)
	}

	root := Entry{Name: r.name(), Parent: r.parent(), Depth: len(r.stack) - 1, Inode: r.ino}
	err = e.walkTree(canonical(r), root, fn)
	if errors.Is(err, fs.SkipDir) {
		return nil
	}
	return e.wrap("walk", path, err)
}

func (e *Engine[S, P]) walkTree(path string, entry Entry, fn WalkFunc) error {
	if err := fn(path, entry); err != nil {
		return err
	}
	if !entry.Inode.IsDir() {
		return nil
	}

	children, err := e.list(entry.Inode.ID, entry.Depth+1)
	if err != nil {
		return err
	}
	for _, child := range children {
		err := e.walkTree(joinPath(path, child.Name), child, fn)
		if err != nil {
			if errors.Is(err, fs.SkipDir) && child.Inode.IsDir() {
				continue
			}
			return err
		}
	}
	return nil
}

// canonical rebuilds the "/"-separated path of a resolution.
func canonical(r *resolution) string {
	if r.isRoot() {
		return "/"
	}
	path := ""
	for _, f := range r.stack[1:] {
		path += "/" + f.name
	}
	return path
}

// openFile resolves a regular file for reading or writing.
func (e *Engine[S, P]) openFile(op semantics.Op, path string) (*resolution, error) {
	r, err := e.resolve(path, true)
	if err != nil {
		return nil, err
	}
	if err := requireFile(r.ino); err != nil {
		return nil, err
	}
	if err := e.check(op, path, r.ino); err != nil {
		return nil, err
	}
	return r, nil
}

// requireFile maps non-file inodes to the appropriate error.
func requireFile(ino *store.Inode) error {
	switch {
	case ino.IsRegular():
		return nil
	case ino.IsDir():
		return store.NewError(store.ErrIsADirectory, "is a directory")
	default:
		return store.NewError(store.ErrNotAFile, "not a regular file")
	}
}
