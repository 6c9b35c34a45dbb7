package container

import (
	"time"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/vfs"
)

// fileTarget is the regular file a write lands on, or the place a new one
// would be created.
type fileTarget struct {
	// ino is the existing file (symlinks followed), nil if absent
	ino *store.Inode

	// loc is where the file would be created when ino is nil
	loc *vfs.Location
}

// lookupFile inspects the destination of a write.
//
// ok is false when the engine call is bound to fail (the path names a
// directory, a dangling symlink, or cannot be resolved), in which case
// nothing needs to be accounted.
func (c *Container[S, P]) lookupFile(path string) (t *fileTarget, ok bool) {
	ino, err := c.engine.Stat(path)
	switch {
	case err == nil:
		if !ino.IsRegular() {
			return nil, false
		}
		return &fileTarget{ino: ino}, true
	case !store.IsCode(err, store.ErrNotFound):
		return nil, false
	}

	loc, err := c.engine.Locate(path)
	if err != nil || loc.Inode != nil {
		return nil, false
	}
	return &fileTarget{loc: loc}, true
}

// checkCreate validates adding n new entries below loc's parent.
func (c *Container[S, P]) checkCreate(loc *vfs.Location, n uint64) error {
	depth := uint64(loc.Depth) + n - 1
	if err := check(ResourcePathDepth, uint64(loc.Depth)-1, depth, c.limits.MaxPathDepth); err != nil {
		return err
	}
	if err := check(ResourceNodes, c.usage.Nodes, c.usage.Nodes+n, c.limits.MaxNodes); err != nil {
		return err
	}
	entries := c.usage.Entries[loc.Parent]
	return check(ResourceDirEntries, entries, entries+1, c.limits.MaxEntriesPerDir)
}

// checkSize validates resizing a file linked nlink times and returns the
// resulting change of TotalBytes.
func (c *Container[S, P]) checkSize(oldSize, newSize, nlink uint64) (int64, error) {
	if newSize > oldSize {
		if err := check(ResourceFileBytes, oldSize, newSize, c.limits.MaxFileBytes); err != nil {
			return 0, err
		}
	}

	delta := (int64(newSize) - int64(oldSize)) * int64(nlink)
	if delta > 0 {
		total := c.usage.TotalBytes
		if err := check(ResourceTotalBytes, total, total+uint64(delta), c.limits.MaxTotalBytes); err != nil {
			return 0, err
		}
	}
	return delta, nil
}

// preflightWrite validates a write that leaves the file at newSize(oldSize).
// When create is set a missing file is accounted as a new entry.
func (c *Container[S, P]) preflightWrite(path string, create bool, newSize func(old uint64) uint64) (func(), error) {
	t, ok := c.lookupFile(path)
	if !ok {
		return nil, nil
	}

	if t.ino != nil {
		delta, err := c.checkSize(t.ino.Size, newSize(t.ino.Size), uint64(t.ino.Nlink))
		if err != nil {
			return nil, err
		}
		return func() { c.usage.addBytes(delta) }, nil
	}

	if !create {
		return nil, nil
	}
	if err := c.checkCreate(t.loc, 1); err != nil {
		return nil, err
	}
	delta, err := c.checkSize(0, newSize(0), 1)
	if err != nil {
		return nil, err
	}

	parent := t.loc.Parent
	return func() {
		c.usage.Nodes++
		c.usage.addEntry(parent)
		c.usage.addBytes(delta)
	}, nil
}

// Write replaces the content of a file, creating it if missing.
func (c *Container[S, P]) Write(path string, data []byte) error {
	return c.WriteMode(path, data, 0)
}

// WriteMode is Write with explicit permission bits for a newly created file.
func (c *Container[S, P]) WriteMode(path string, data []byte, mode uint32) error {
	path = c.abs(path)
	err := c.mutate("write", path, func() (func(), error) {
		return c.preflightWrite(path, true, func(uint64) uint64 { return uint64(len(data)) })
	}, func() error {
		return c.engine.WriteFile(path, data, mode)
	})
	c.countWritten(len(data), err)
	return err
}

// WriteAt writes data at offset into an existing file.
func (c *Container[S, P]) WriteAt(path string, data []byte, offset int64) error {
	path = c.abs(path)
	err := c.mutate("write_at", path, func() (func(), error) {
		if offset < 0 {
			return nil, nil
		}
		return c.preflightWrite(path, false, func(old uint64) uint64 {
			if end := uint64(offset) + uint64(len(data)); len(data) > 0 && end > old {
				return end
			}
			return old
		})
	}, func() error {
		_, err := c.engine.WriteAt(path, data, offset)
		return err
	})
	c.countWritten(len(data), err)
	return err
}

// Append writes data at the end of a file, creating it if missing.
func (c *Container[S, P]) Append(path string, data []byte) error {
	path = c.abs(path)
	err := c.mutate("append", path, func() (func(), error) {
		return c.preflightWrite(path, true, func(old uint64) uint64 { return old + uint64(len(data)) })
	}, func() error {
		return c.engine.Append(path, data, 0)
	})
	c.countWritten(len(data), err)
	return err
}

// Truncate sets the size of an existing file.
func (c *Container[S, P]) Truncate(path string, size uint64) error {
	path = c.abs(path)
	return c.mutate("truncate", path, func() (func(), error) {
		return c.preflightWrite(path, false, func(uint64) uint64 { return size })
	}, func() error {
		return c.engine.Truncate(path, size)
	})
}

// Create creates an empty file; it fails if the entry exists.
func (c *Container[S, P]) Create(path string, mode uint32) error {
	path = c.abs(path)
	return c.mutate("create", path, func() (func(), error) {
		return c.preflightEntry(path)
	}, func() error {
		return c.engine.CreateFile(path, mode)
	})
}

// Copy duplicates the content of src into dst, creating or overwriting dst.
func (c *Container[S, P]) Copy(src, dst string) error {
	src, dst = c.abs(src), c.abs(dst)
	return c.mutate("copy", src, func() (func(), error) {
		from, err := c.engine.Stat(src)
		if err != nil || !from.IsRegular() {
			return nil, nil
		}
		commit, err := c.preflightWrite(dst, true, func(uint64) uint64 { return from.Size })
		if err != nil {
			return nil, &vfs.PathError{Op: "copy", Path: src, NewPath: dst, Err: err}
		}
		return commit, nil
	}, func() error {
		return c.engine.Copy(src, dst)
	})
}

// SetPermissions replaces the permission bits of path (following symlinks).
func (c *Container[S, P]) SetPermissions(path string, mode uint32) error {
	path = c.abs(path)
	return c.mutate("set_permissions", path, noPreflight, func() error {
		return c.engine.SetPermissions(path, mode)
	})
}

// SetTimes sets access and modification times; a zero time is left unchanged.
func (c *Container[S, P]) SetTimes(path string, atime, mtime time.Time) error {
	path = c.abs(path)
	return c.mutate("set_times", path, noPreflight, func() error {
		return c.engine.SetTimes(path, atime, mtime)
	})
}

func noPreflight() (func(), error) { return nil, nil }

func (c *Container[S, P]) countWritten(n int, err error) {
	if err == nil && n > 0 {
		c.metrics.RecordBytes("write", int64(n))
	}
}
