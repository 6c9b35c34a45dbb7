package vfs

import (
	"strings"

	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
)

// frame is one directory (or final entry) on the resolution stack.
type frame struct {
	id   store.InodeID
	name string
}

// resolution is the result of resolving a path to an existing entry.
//
// stack holds every inode from the root to the entry itself, in order. Each
// directory has exactly one entry, so stack is the true ancestor chain of the
// entry whatever symlinks were followed on the way.
type resolution struct {
	stack []frame
	ino   *store.Inode
}

func (r *resolution) id() store.InodeID { return r.stack[len(r.stack)-1].id }
func (r *resolution) name() string      { return r.stack[len(r.stack)-1].name }
func (r *resolution) isRoot() bool      { return len(r.stack) == 1 }

// parent returns the directory holding the entry (the root for the root).
func (r *resolution) parent() store.InodeID {
	if len(r.stack) < 2 {
		return r.stack[0].id
	}
	return r.stack[len(r.stack)-2].id
}

// placement is the result of resolving the parent of a path.
//
// It is used by operations that create or replace the final entry.
type placement struct {
	// dir is the resolution of the parent directory
	dir *resolution

	// name is the normalized final name
	name string

	// entry is the existing entry under name, nil if absent (not followed)
	entry *store.Inode
}

// contains reports whether id appears on the ancestor chain.
func (r *resolution) contains(id store.InodeID) bool {
	for _, f := range r.stack {
		if f.id == id {
			return true
		}
	}
	return false
}

// resolve walks path from the root.
//
// When follow is true a symlink in final position is followed (stat);
// otherwise the symlink itself is returned (lstat).
func (e *Engine[S, P]) resolve(path string, follow bool) (*resolution, error) {
	components, err := e.sem.Split(path)
	if err != nil {
		return nil, err
	}

	hops := 0
	stack := []frame{{id: e.storage.Root()}}
	return e.walk(stack, components, follow, &hops)
}

// resolveParent resolves every component but the last, following symlinks,
// and looks up the final name without following it.
func (e *Engine[S, P]) resolveParent(path string) (*placement, error) {
	components, err := e.sem.Split(path)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, store.NewError(store.ErrInvalidPath, "the root has no parent")
	}

	last := components[len(components)-1]
	if err := e.sem.ValidateName(last); err != nil {
		return nil, err
	}

	hops := 0
	stack := []frame{{id: e.storage.Root()}}
	dir, err := e.walk(stack, components[:len(components)-1], true, &hops)
	if err != nil {
		return nil, err
	}
	if !dir.ino.IsDir() {
		return nil, store.NewError(store.ErrNotADirectory, "%q is not a directory", dir.name())
	}

	p := &placement{dir: dir, name: e.sem.NormalizeName(last)}
	id, err := e.storage.Lookup(dir.id(), p.name)
	switch {
	case err == nil:
		if p.entry, err = e.storage.GetInode(id); err != nil {
			return nil, err
		}
	case !store.IsCode(err, store.ErrEntryNotFound):
		return nil, err
	}
	return p, nil
}

// walk resolves queue starting from the top of stack.
func (e *Engine[S, P]) walk(start []frame, queue []string, followLast bool, hops *int) (*resolution, error) {
	stack := make([]frame, len(start), len(start)+len(queue))
	copy(stack, start)

	var ino *store.Inode
	for len(queue) > 0 {
		comp := queue[0]
		queue = queue[1:]

		if comp == ".." {
			if ino != nil && !ino.IsDir() {
				return nil, store.NewError(store.ErrNotADirectory, "%q is not a directory", stack[len(stack)-1].name)
			}
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			ino = nil
			continue
		}

		// ====================================================================
		// Step 1: Look the component up in the current directory
		// ====================================================================

		name := e.sem.NormalizeName(comp)
		id, err := e.storage.Lookup(stack[len(stack)-1].id, name)
		if err != nil {
			if store.IsCode(err, store.ErrEntryNotFound) {
				return nil, &store.StoreError{
					Code:    store.ErrNotFound,
					Message: "no such file or directory: " + comp,
					Err:     err,
				}
			}
			return nil, err
		}
		child, err := e.storage.GetInode(id)
		if err != nil {
			return nil, err
		}

		// ====================================================================
		// Step 2: Follow symlinks in non-final (or followed final) position
		// ====================================================================

		if child.IsSymlink() && (len(queue) > 0 || followLast) {
			*hops++
			if *hops > e.sem.MaxSymlinkDepth() {
				return nil, store.NewError(store.ErrSymlinkLoop, "more than %d symlinks followed", e.sem.MaxSymlinkDepth())
			}

			expanded, base, err := e.expand(stack, child.Target)
			if err != nil {
				return nil, err
			}
			stack = base
			queue = append(expanded, queue...)
			ino = nil
			continue
		}

		stack = append(stack, frame{id: id, name: name})
		ino = child
	}

	if ino == nil {
		var err error
		if ino, err = e.storage.GetInode(stack[len(stack)-1].id); err != nil {
			return nil, err
		}
	}
	return &resolution{stack: stack, ino: ino}, nil
}

// expand turns a symlink target into components and the stack they start from.
//
// Absolute targets restart from the root. Relative targets are resolved from
// the directory holding the symlink: lexically (joined to its path and
// cleaned) or physically (walked from the directory itself).
func (e *Engine[S, P]) expand(stack []frame, target string) ([]string, []frame, error) {
	if target == "" {
		return nil, nil, store.NewError(store.ErrNotFound, "empty symlink target")
	}

	if e.sem.IsAbsolute(target) {
		components, err := e.sem.Split(target)
		return components, stack[:1], err
	}

	if e.sem.DotSegments() == semantics.DotPhysical {
		components, err := e.sem.Split("/" + target)
		return components, stack, err
	}

	var b strings.Builder
	for _, f := range stack[1:] {
		b.WriteByte('/')
		b.WriteString(f.name)
	}
	b.WriteByte('/')
	b.WriteString(target)

	components, err := e.sem.Split(b.String())
	return components, stack[:1], err
}

// joinPath appends name to a canonical directory path.
func joinPath(dir, name string) string {
	if dir == "/" || dir == "" {
		return "/" + name
	}
	return dir + "/" + name
}
