package container

import (
	"errors"
	"io"
	"time"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/vfs"
)

// Read returns the whole content of a file.
func (c *Container[S, P]) Read(path string) ([]byte, error) {
	start := time.Now()
	data, err := c.engine.ReadFile(c.abs(path))
	if err == nil {
		c.metrics.RecordBytes("read", int64(len(data)))
	}
	return data, c.record("read", start, err)
}

// ReadRange returns up to length bytes starting at offset. The result is
// short, without error, when the file ends first.
func (c *Container[S, P]) ReadRange(path string, offset int64, length int) ([]byte, error) {
	start := time.Now()
	if length < 0 {
		err := &vfs.PathError{Op: "read", Path: path, Err: store.NewError(store.ErrInvalidArgument, "negative length %d", length)}
		return nil, c.record("read_range", start, err)
	}

	buf := make([]byte, length)
	n, err := c.engine.ReadAt(c.abs(path), buf, offset)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return nil, c.record("read_range", start, err)
	}
	c.metrics.RecordBytes("read", int64(n))
	return buf[:n], c.record("read_range", start, nil)
}

// Exists reports whether path names an existing entry, following symlinks.
func (c *Container[S, P]) Exists(path string) (bool, error) {
	start := time.Now()
	ok, err := c.engine.Exists(c.abs(path))
	return ok, c.record("exists", start, err)
}

// Stat returns the inode path names, following a final symlink.
func (c *Container[S, P]) Stat(path string) (*store.Inode, error) {
	start := time.Now()
	ino, err := c.engine.Stat(c.abs(path))
	return ino, c.record("stat", start, err)
}

// Lstat returns the inode path names without following a final symlink.
func (c *Container[S, P]) Lstat(path string) (*store.Inode, error) {
	start := time.Now()
	ino, err := c.engine.Lstat(c.abs(path))
	return ino, c.record("lstat", start, err)
}

// ReadDir lists a directory in name order.
func (c *Container[S, P]) ReadDir(path string) ([]vfs.Entry, error) {
	start := time.Now()
	entries, err := c.engine.ReadDir(c.abs(path))
	return entries, c.record("read_dir", start, err)
}

// ReadLink returns the literal target of a symlink.
func (c *Container[S, P]) ReadLink(path string) (string, error) {
	start := time.Now()
	target, err := c.engine.ReadLink(c.abs(path))
	return target, c.record("read_link", start, err)
}

// Walk visits path and everything below it. See vfs.Engine.Walk.
func (c *Container[S, P]) Walk(path string, fn vfs.WalkFunc) error {
	start := time.Now()
	return c.record("walk", start, c.engine.Walk(c.abs(path), fn))
}
