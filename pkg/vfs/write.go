package vfs

import (
	"errors"
	"io"
	"time"

	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
)

// WriteFile replaces the content of a file, creating it with mode if missing.
func (e *Engine[S, P]) WriteFile(path string, data []byte, mode uint32) error {
	id, _, err := e.openOrCreate(semantics.OpWrite, path, mode)
	if err != nil {
		return e.wrap("write", path, err)
	}
	if err := e.storage.Truncate(id, 0); err != nil {
		return e.wrap("write", path, err)
	}
	_, err = e.storage.WriteAt(id, data, 0)
	return e.wrap("write", path, err)
}

// WriteAt writes data at offset into an existing file, zero-filling any gap.
func (e *Engine[S, P]) WriteAt(path string, data []byte, offset int64) (int, error) {
	r, err := e.openFile(semantics.OpWrite, path)
	if err != nil {
		return 0, e.wrap("write", path, err)
	}
	n, err := e.storage.WriteAt(r.id(), data, offset)
	return n, e.wrap("write", path, err)
}

// Append writes data at the end of a file, creating it with mode if missing.
func (e *Engine[S, P]) Append(path string, data []byte, mode uint32) error {
	id, ino, err := e.openOrCreate(semantics.OpWrite, path, mode)
	if err != nil {
		return e.wrap("append", path, err)
	}
	_, err = e.storage.WriteAt(id, data, int64(ino.Size))
	return e.wrap("append", path, err)
}

// Truncate sets the size of an existing file.
func (e *Engine[S, P]) Truncate(path string, size uint64) error {
	r, err := e.openFile(semantics.OpWrite, path)
	if err != nil {
		return e.wrap("truncate", path, err)
	}
	return e.wrap("truncate", path, e.storage.Truncate(r.id(), size))
}

// CreateFile creates an empty file. It fails with ErrAlreadyExists if the
// entry exists.
func (e *Engine[S, P]) CreateFile(path string, mode uint32) error {
	p, err := e.resolveParent(path)
	if err != nil {
		return e.wrap("create", path, err)
	}
	if p.entry != nil {
		return e.wrap("create", path, store.NewError(store.ErrAlreadyExists, "file exists"))
	}
	_, _, err = e.create(semantics.OpCreate, path, p, store.FileTypeRegular, mode, "")
	return e.wrap("create", path, err)
}

// Copy duplicates the content of a file into dst.
//
// An existing destination file is overwritten in place (its links see the new
// content); a missing one is created with the source's mode. The copy gets its
// own content: later writes to one side never show through the other.
func (e *Engine[S, P]) Copy(src, dst string) error {
	wrap := func(err error) error { return e.wrap2("copy", src, dst, err) }

	from, err := e.openFile(semantics.OpRead, src)
	if err != nil {
		return wrap(err)
	}

	data := make([]byte, from.ino.Size)
	n, err := e.storage.ReadAt(from.id(), data, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return wrap(err)
	}
	data = data[:n]

	id, _, err := e.openOrCreate(semantics.OpWrite, dst, from.ino.Mode)
	if err != nil {
		return wrap(err)
	}
	if id == from.id() {
		return nil
	}
	if err := e.storage.Truncate(id, 0); err != nil {
		return wrap(err)
	}
	_, err = e.storage.WriteAt(id, data, 0)
	return wrap(err)
}

// SetPermissions replaces the permission bits (following symlinks).
func (e *Engine[S, P]) SetPermissions(path string, mode uint32) error {
	r, err := e.resolve(path, true)
	if err != nil {
		return e.wrap("chmod", path, err)
	}
	if err := e.check(semantics.OpSetAttr, path, r.ino); err != nil {
		return e.wrap("chmod", path, err)
	}
	mode &= store.PermMask
	return e.wrap("chmod", path, e.storage.UpdateInode(r.id(), &store.SetAttrs{Mode: &mode}))
}

// SetTimes sets access and modification times (following symlinks).
// A zero time leaves the corresponding field unchanged.
func (e *Engine[S, P]) SetTimes(path string, atime, mtime time.Time) error {
	r, err := e.resolve(path, true)
	if err != nil {
		return e.wrap("chtimes", path, err)
	}
	if err := e.check(semantics.OpSetAttr, path, r.ino); err != nil {
		return e.wrap("chtimes", path, err)
	}

	attrs := &store.SetAttrs{}
	if !atime.IsZero() {
		attrs.Atime = &atime
	}
	if !mtime.IsZero() {
		attrs.Mtime = &mtime
	}
	return e.wrap("chtimes", path, e.storage.UpdateInode(r.id(), attrs))
}

// openOrCreate returns the regular file a path names, creating it if missing.
//
// A final symlink is followed; a dangling one reports ErrNotFound rather than
// creating its target.
func (e *Engine[S, P]) openOrCreate(op semantics.Op, path string, mode uint32) (store.InodeID, *store.Inode, error) {
	r, err := e.openFile(op, path)
	if err == nil {
		return r.id(), r.ino, nil
	}
	if !store.IsCode(err, store.ErrNotFound) {
		return 0, nil, err
	}

	p, perr := e.resolveParent(path)
	if perr != nil {
		return 0, nil, perr
	}
	if p.entry != nil {
		return 0, nil, err
	}
	return e.create(semantics.OpCreate, path, p, store.FileTypeRegular, mode, "")
}

// create allocates an inode and links it at a placement known to be free.
//
// If linking fails the fresh inode is deleted again.
func (e *Engine[S, P]) create(op semantics.Op, path string, p *placement, fileType store.FileType, mode uint32, target string) (store.InodeID, *store.Inode, error) {
	if err := e.check(op, path, p.dir.ino); err != nil {
		return 0, nil, err
	}

	id, err := e.storage.CreateInode(fileType, mode, target)
	if err != nil {
		return 0, nil, err
	}
	if err := e.storage.Link(p.dir.id(), p.name, id); err != nil {
		_ = e.storage.DeleteInode(id)
		return 0, nil, err
	}

	ino, err := e.storage.GetInode(id)
	if err != nil {
		return 0, nil, err
	}
	return id, ino, nil
}
