package container

import (
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/vfs"
)

// preflightEntry validates creating one entry that holds no bytes.
func (c *Container[S, P]) preflightEntry(path string) (func(), error) {
	loc, err := c.engine.Locate(path)
	if err != nil || loc.Inode != nil {
		return nil, nil
	}
	if err := c.checkCreate(loc, 1); err != nil {
		return nil, err
	}
	return func() {
		c.usage.Nodes++
		c.usage.addEntry(loc.Parent)
	}, nil
}

// Mkdir creates a single directory.
func (c *Container[S, P]) Mkdir(path string, mode uint32) error {
	path = c.abs(path)
	return c.mutate("mkdir", path, func() (func(), error) {
		return c.preflightEntry(path)
	}, func() error {
		return c.engine.Mkdir(path, mode)
	})
}

// MkdirAll creates a directory and every missing parent.
func (c *Container[S, P]) MkdirAll(path string, mode uint32) error {
	path = c.abs(path)
	return c.mutate("mkdir_all", path, func() (func(), error) {
		return c.preflightMkdirAll(path)
	}, func() error {
		return c.engine.MkdirAll(path, mode)
	})
}

// preflightMkdirAll walks the components the way the engine does and
// validates every directory it would create.
//
// With physical dot segments a ".." after a missing component climbs back out
// of the directories created so far, so the walk keeps a stack of pending
// directories instead of counting every component past the first missing one.
func (c *Container[S, P]) preflightMkdirAll(path string) (func(), error) {
	components, err := c.engine.Semantics().Split(path)
	if err != nil {
		return nil, nil
	}

	type pendingDir struct {
		path  string
		depth uint64
	}
	// entryKey names a directory to be created: its parent is either an
	// existing inode or a pending directory (by path)
	type entryKey struct {
		parent  store.InodeID
		pending string
		name    string
	}
	var (
		pending  []pendingDir
		created  uint64
		maxDepth uint64
		planned  = map[entryKey]pendingDir{}
		// Entries added to directories that exist today / to pending ones
		existing = map[store.InodeID]uint64{}
		fresh    = map[string]uint64{}
	)

	// base is the existing directory the pending stack grows from
	current, base := "", ""
	for _, comp := range components {
		next := current + "/" + comp

		if len(pending) > 0 {
			if comp == ".." {
				pending = pending[:len(pending)-1]
				current = next
				if len(pending) == 0 {
					current = base
				}
				continue
			}
			top := pending[len(pending)-1]
			key := entryKey{pending: top.path, name: c.engine.Semantics().NormalizeName(comp)}
			dir, ok := planned[key]
			if !ok {
				dir = pendingDir{path: next, depth: top.depth + 1}
				planned[key] = dir
				fresh[top.path]++
				created++
				maxDepth = max(maxDepth, dir.depth)
			}
			pending = append(pending, dir)
			current = next
			continue
		}

		loc, err := c.engine.Locate(next)
		if err != nil {
			return c.fallback(), nil
		}
		if loc.Inode == nil {
			key := entryKey{parent: loc.Parent, name: loc.Name}
			dir, ok := planned[key]
			if !ok {
				dir = pendingDir{path: next, depth: uint64(loc.Depth)}
				planned[key] = dir
				existing[loc.Parent]++
				created++
				maxDepth = max(maxDepth, dir.depth)
			}
			pending = append(pending, dir)
			base = current
		}
		current = next
	}
	if created == 0 {
		return nil, nil
	}

	// ========================================================================
	// Capacity checks
	// ========================================================================

	if err := check(ResourcePathDepth, maxDepth-1, maxDepth, c.limits.MaxPathDepth); err != nil {
		return nil, err
	}
	if err := check(ResourceNodes, c.usage.Nodes, c.usage.Nodes+created, c.limits.MaxNodes); err != nil {
		return nil, err
	}
	for dir, n := range existing {
		used := c.usage.Entries[dir]
		if err := check(ResourceDirEntries, used, used+n, c.limits.MaxEntriesPerDir); err != nil {
			return nil, err
		}
	}
	for _, n := range fresh {
		if err := check(ResourceDirEntries, 0, n, c.limits.MaxEntriesPerDir); err != nil {
			return nil, err
		}
	}

	return func() {
		c.usage.Nodes += created
		for dir, n := range existing {
			c.usage.Entries[dir] += n
		}
		for dir, n := range fresh {
			r, err := c.engine.Resolve(dir, true)
			if err != nil {
				c.fallback()()
				return
			}
			c.usage.Entries[r.Inode.ID] += n
		}
	}, nil
}

// Symlink creates a symlink at linkPath holding target verbatim.
func (c *Container[S, P]) Symlink(target, linkPath string) error {
	linkPath = c.abs(linkPath)
	return c.mutate("symlink", linkPath, func() (func(), error) {
		return c.preflightEntry(linkPath)
	}, func() error {
		return c.engine.Symlink(target, linkPath)
	})
}

// HardLink creates newPath as another entry for the inode at existing.
//
// The new link counts as a node and, for a regular file, adds its size to
// TotalBytes.
func (c *Container[S, P]) HardLink(existing, newPath string) error {
	existing, newPath = c.abs(existing), c.abs(newPath)
	return c.mutate("hard_link", existing, func() (func(), error) {
		src, err := c.engine.Lstat(existing)
		if err != nil || src.IsDir() {
			return nil, nil
		}
		loc, err := c.engine.Locate(newPath)
		if err != nil || loc.Inode != nil {
			return nil, nil
		}

		wrap := func(err error) error {
			return &vfs.PathError{Op: "link", Path: existing, NewPath: newPath, Err: err}
		}
		if err := c.checkCreate(loc, 1); err != nil {
			return nil, wrap(err)
		}
		var delta int64
		if src.IsRegular() {
			if delta, err = c.checkSize(0, src.Size, 1); err != nil {
				return nil, wrap(err)
			}
		}

		return func() {
			c.usage.Nodes++
			c.usage.addEntry(loc.Parent)
			c.usage.addBytes(delta)
		}, nil
	}, func() error {
		return c.engine.HardLink(existing, newPath)
	})
}

// forget removes the accounting of one entry at loc.
func (c *Container[S, P]) forget(loc *vfs.Location) {
	c.usage.removeNodes(1)
	c.usage.removeEntry(loc.Parent)
	switch {
	case loc.Inode.IsRegular():
		c.usage.addBytes(-int64(loc.Inode.Size))
	case loc.Inode.IsDir():
		delete(c.usage.Entries, loc.Inode.ID)
	}
}

// preflightRemove records what removing a single entry releases.
func (c *Container[S, P]) preflightRemove(path string) (func(), error) {
	loc, err := c.engine.Resolve(path, false)
	if err != nil {
		return nil, nil
	}
	return func() { c.forget(loc) }, nil
}

// RemoveFile removes a non-directory entry.
func (c *Container[S, P]) RemoveFile(path string) error {
	path = c.abs(path)
	return c.mutate("remove_file", path, func() (func(), error) {
		return c.preflightRemove(path)
	}, func() error {
		return c.engine.RemoveFile(path)
	})
}

// RemoveDir removes an empty directory.
func (c *Container[S, P]) RemoveDir(path string) error {
	path = c.abs(path)
	return c.mutate("remove_dir", path, func() (func(), error) {
		return c.preflightRemove(path)
	}, func() error {
		return c.engine.RemoveDir(path)
	})
}

// RemoveAll removes path and everything below it. A missing path is not an
// error; removing the root empties it.
func (c *Container[S, P]) RemoveAll(path string) error {
	path = c.abs(path)
	return c.mutate("remove_all", path, func() (func(), error) {
		return c.preflightRemoveAll(path)
	}, func() error {
		return c.engine.RemoveAll(path)
	})
}

func (c *Container[S, P]) preflightRemoveAll(path string) (func(), error) {
	top, err := c.engine.Resolve(path, false)
	if err != nil {
		return nil, nil
	}
	if top.Depth == 0 {
		return func() {
			c.usage = Usage{Entries: make(map[store.InodeID]uint64)}
		}, nil
	}

	var nodes, bytes uint64
	var dirs []store.InodeID
	err = c.engine.Walk(path, func(_ string, entry vfs.Entry) error {
		nodes++
		switch {
		case entry.Inode.IsRegular():
			bytes += entry.Inode.Size
		case entry.Inode.IsDir():
			dirs = append(dirs, entry.Inode.ID)
		}
		return nil
	})
	if err != nil {
		return c.fallback(), nil
	}

	return func() {
		c.usage.removeNodes(nodes)
		c.usage.addBytes(-int64(bytes))
		c.usage.removeEntry(top.Parent)
		for _, id := range dirs {
			delete(c.usage.Entries, id)
		}
	}, nil
}

// Rename moves the entry at oldPath to newPath, replacing a compatible
// destination.
//
// Moving never adds nodes or bytes; it can fill the destination directory
// and deepen the moved subtree, which is what the pre-flight checks.
func (c *Container[S, P]) Rename(oldPath, newPath string) error {
	oldPath, newPath = c.abs(oldPath), c.abs(newPath)
	return c.mutate("rename", oldPath, func() (func(), error) {
		return c.preflightRename(oldPath, newPath)
	}, func() error {
		return c.engine.Rename(oldPath, newPath)
	})
}

func (c *Container[S, P]) preflightRename(oldPath, newPath string) (func(), error) {
	src, err := c.engine.Resolve(oldPath, false)
	if err != nil || src.Depth == 0 {
		return nil, nil
	}
	dst, err := c.engine.Locate(newPath)
	if err != nil {
		return nil, nil
	}
	if dst.Inode != nil && dst.Inode.ID == src.Inode.ID {
		return nil, nil
	}

	wrap := func(err error) error {
		return &vfs.PathError{Op: "rename", Path: oldPath, NewPath: newPath, Err: err}
	}

	// ========================================================================
	// Step 1: Destination directory fill
	// ========================================================================

	if dst.Inode == nil && dst.Parent != src.Parent {
		entries := c.usage.Entries[dst.Parent]
		if err := check(ResourceDirEntries, entries, entries+1, c.limits.MaxEntriesPerDir); err != nil {
			return nil, wrap(err)
		}
	}

	// ========================================================================
	// Step 2: Depth of the deepest moved entry
	// ========================================================================

	if c.limits.MaxPathDepth > 0 && dst.Depth > src.Depth {
		height := 0
		if src.Inode.IsDir() {
			err := c.engine.Walk(oldPath, func(_ string, entry vfs.Entry) error {
				height = max(height, entry.Depth-src.Depth)
				return nil
			})
			if err != nil {
				return c.fallback(), nil
			}
		}
		used, requested := uint64(src.Depth+height), uint64(dst.Depth+height)
		if err := check(ResourcePathDepth, used, requested, c.limits.MaxPathDepth); err != nil {
			return nil, wrap(err)
		}
	}

	return func() {
		c.usage.removeEntry(src.Parent)
		if dst.Inode == nil {
			c.usage.addEntry(dst.Parent)
			return
		}
		c.forget(dst)
		c.usage.addEntry(dst.Parent)
	}, nil
}
