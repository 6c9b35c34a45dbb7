package vfs

import (
	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
)

// Mkdir creates a single directory. The parent must exist.
func (e *Engine[S, P]) Mkdir(path string, mode uint32) error {
	return e.wrap("mkdir", path, e.mkdir(path, mode))
}

func (e *Engine[S, P]) mkdir(path string, mode uint32) error {
	if e.isRoot(path) {
		return store.NewError(store.ErrAlreadyExists, "the root already exists")
	}
	p, err := e.resolveParent(path)
	if err != nil {
		return err
	}
	if p.entry != nil {
		return store.NewError(store.ErrAlreadyExists, "file exists")
	}
	_, _, err = e.create(semantics.OpMkdir, path, p, store.FileTypeDirectory, mode, "")
	return err
}

// MkdirAll creates a directory and every missing parent.
//
// Existing directories (or symlinks to directories) along the path are
// accepted; any other existing entry fails with ErrNotADirectory.
func (e *Engine[S, P]) MkdirAll(path string, mode uint32) error {
	components, err := e.sem.Split(path)
	if err != nil {
		return e.wrap("mkdir", path, err)
	}

	current := "/"
	for _, comp := range components {
		current = joinPath(current, comp)

		r, err := e.resolve(current, true)
		switch {
		case err == nil:
			if !r.ino.IsDir() {
				return e.wrap("mkdir", path, store.NewError(store.ErrNotADirectory, "%s is not a directory", current))
			}
			continue
		case !store.IsCode(err, store.ErrNotFound):
			return e.wrap("mkdir", path, err)
		}

		if err := e.mkdir(current, mode); err != nil {
			return e.wrap("mkdir", path, err)
		}
	}
	return nil
}

// RemoveFile removes a non-directory entry. The inode is deleted with its
// last entry. Symlinks are removed, not followed.
func (e *Engine[S, P]) RemoveFile(path string) error {
	r, err := e.resolve(path, false)
	if err != nil {
		return e.wrap("remove", path, err)
	}
	if r.ino.IsDir() {
		return e.wrap("remove", path, store.NewError(store.ErrIsADirectory, "is a directory"))
	}
	if err := e.check(semantics.OpRemove, path, r.ino); err != nil {
		return e.wrap("remove", path, err)
	}
	return e.wrap("remove", path, e.removeEntry(r.parent(), r.name()))
}

// RemoveDir removes an empty directory.
func (e *Engine[S, P]) RemoveDir(path string) error {
	r, err := e.resolve(path, false)
	if err != nil {
		return e.wrap("rmdir", path, err)
	}
	if !r.ino.IsDir() {
		return e.wrap("rmdir", path, store.NewError(store.ErrNotADirectory, "not a directory"))
	}
	if r.isRoot() {
		return e.wrap("rmdir", path, store.NewError(store.ErrInvalidPath, "cannot remove the root"))
	}
	if err := e.check(semantics.OpRemove, path, r.ino); err != nil {
		return e.wrap("rmdir", path, err)
	}

	entries, err := e.storage.ReadDir(r.id())
	if err != nil {
		return e.wrap("rmdir", path, err)
	}
	if len(entries) > 0 {
		return e.wrap("rmdir", path, store.NewError(store.ErrDirectoryNotEmpty, "directory not empty"))
	}
	return e.wrap("rmdir", path, e.removeEntry(r.parent(), r.name()))
}

// RemoveAll removes path and everything below it, bottom-up.
//
// A missing path is not an error. Removing the root empties it and keeps it.
func (e *Engine[S, P]) RemoveAll(path string) error {
	r, err := e.resolve(path, false)
	if err != nil {
		if store.IsCode(err, store.ErrNotFound) {
			return nil
		}
		return e.wrap("removeall", path, err)
	}
	if err := e.check(semantics.OpRemove, path, r.ino); err != nil {
		return e.wrap("removeall", path, err)
	}

	if r.ino.IsDir() {
		if err := e.removeChildren(r.id()); err != nil {
			return e.wrap("removeall", path, err)
		}
	}
	if r.isRoot() {
		return nil
	}
	return e.wrap("removeall", path, e.removeEntry(r.parent(), r.name()))
}

func (e *Engine[S, P]) removeChildren(dir store.InodeID) error {
	entries, err := e.storage.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		ino, err := e.storage.GetInode(entry.ID)
		if err != nil {
			return err
		}
		if ino.IsDir() {
			if err := e.removeChildren(entry.ID); err != nil {
				return err
			}
		}
		if err := e.removeEntry(dir, entry.Name); err != nil {
			return err
		}
	}
	return nil
}

// removeEntry unlinks (dir, name) and deletes the inode at link count zero.
func (e *Engine[S, P]) removeEntry(dir store.InodeID, name string) error {
	id, err := e.storage.Unlink(dir, name)
	if err != nil {
		return err
	}
	return e.release(id)
}

// Rename moves the entry at oldPath to newPath.
//
// Validation happens before any mutation:
//   - the root cannot be moved
//   - a directory cannot move under itself or any of its descendants
//   - an existing destination is replaced only if the semantics allow it
//
// The source inode keeps its identity. Renaming an entry onto itself, or onto
// another hard link of the same inode, does nothing.
func (e *Engine[S, P]) Rename(oldPath, newPath string) error {
	wrap := func(err error) error { return e.wrap2("rename", oldPath, newPath, err) }

	// ========================================================================
	// Step 1: Resolve source entry and destination parent
	// ========================================================================

	src, err := e.resolve(oldPath, false)
	if err != nil {
		return wrap(err)
	}
	if src.isRoot() {
		return wrap(store.NewError(store.ErrInvalidPath, "cannot rename the root"))
	}

	dst, err := e.resolveParent(newPath)
	if err != nil {
		return wrap(err)
	}

	// ========================================================================
	// Step 2: Cycle check on the destination's ancestor chain
	// ========================================================================

	if src.ino.IsDir() && dst.dir.contains(src.id()) {
		return wrap(store.NewError(store.ErrWouldCreateCycle, "cannot move a directory into itself"))
	}

	if err := e.check(semantics.OpRename, oldPath, src.ino); err != nil {
		return wrap(err)
	}

	// ========================================================================
	// Step 3: Overwrite policy
	// ========================================================================

	if dst.entry != nil {
		if dst.entry.ID == src.id() {
			return nil
		}

		empty := true
		if dst.entry.IsDir() {
			entries, err := e.storage.ReadDir(dst.entry.ID)
			if err != nil {
				return wrap(err)
			}
			empty = len(entries) == 0
		}
		if err := e.sem.CheckRenameOverwrite(src.ino.Type, dst.entry.Type, empty); err != nil {
			return wrap(err)
		}
		if err := e.check(semantics.OpRemove, newPath, dst.entry); err != nil {
			return wrap(err)
		}
	}

	// ========================================================================
	// Step 4: Replace target, then move the source entry
	// ========================================================================

	if dst.entry != nil {
		if err := e.removeEntry(dst.dir.id(), dst.name); err != nil {
			return wrap(err)
		}
	}
	if _, err := e.storage.Unlink(src.parent(), src.name()); err != nil {
		return wrap(err)
	}
	return wrap(e.storage.Link(dst.dir.id(), dst.name, src.id()))
}

// Symlink creates a symlink at linkPath holding target verbatim.
//
// The target is not resolved: dangling symlinks are legal.
func (e *Engine[S, P]) Symlink(target, linkPath string) error {
	wrap := func(err error) error { return e.wrap("symlink", linkPath, err) }

	if !e.sem.SupportsSymlinks() {
		return wrap(store.NewError(store.ErrNotSupported, "symlinks are not supported"))
	}
	if target == "" {
		return wrap(store.NewError(store.ErrInvalidPath, "empty symlink target"))
	}

	p, err := e.resolveParent(linkPath)
	if err != nil {
		return wrap(err)
	}
	if p.entry != nil {
		return wrap(store.NewError(store.ErrAlreadyExists, "file exists"))
	}
	_, _, err = e.create(semantics.OpSymlink, linkPath, p, store.FileTypeSymlink, 0, target)
	return wrap(err)
}

// HardLink creates newPath as another entry for the inode at existing.
//
// A final symlink in existing is linked itself, not followed. Directories can
// never be hard-linked.
func (e *Engine[S, P]) HardLink(existing, newPath string) error {
	wrap := func(err error) error { return e.wrap2("link", existing, newPath, err) }

	src, err := e.resolve(existing, false)
	if err != nil {
		return wrap(err)
	}
	if src.ino.IsDir() {
		return wrap(store.NewError(store.ErrIsADirectory, "cannot hard-link a directory"))
	}
	if !e.sem.SupportsHardLinks() {
		return wrap(store.NewError(store.ErrNotSupported, "hard links are not supported"))
	}

	dst, err := e.resolveParent(newPath)
	if err != nil {
		return wrap(err)
	}
	if dst.entry != nil {
		return wrap(store.NewError(store.ErrAlreadyExists, "file exists"))
	}
	if err := e.check(semantics.OpLink, newPath, src.ino); err != nil {
		return wrap(err)
	}
	return wrap(e.storage.Link(dst.dir.id(), dst.name, src.id()))
}

// isRoot reports whether path names the root after splitting.
func (e *Engine[S, P]) isRoot(path string) bool {
	components, err := e.sem.Split(path)
	return err == nil && len(components) == 0
}
