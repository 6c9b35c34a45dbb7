package container

import (
	"fmt"

	"github.com/marmos91/inodefs/pkg/store"
)

// Limits bounds what a container may hold. A zero field means unlimited.
type Limits struct {
	// MaxTotalBytes bounds the sum of file sizes, counted once per link
	MaxTotalBytes uint64 `mapstructure:"max_total_bytes" yaml:"max_total_bytes" json:"max_total_bytes,omitempty"`

	// MaxFileBytes bounds the size of any single file
	MaxFileBytes uint64 `mapstructure:"max_file_bytes" yaml:"max_file_bytes" json:"max_file_bytes,omitempty"`

	// MaxNodes bounds the number of directory entries (the root excluded)
	MaxNodes uint64 `mapstructure:"max_nodes" yaml:"max_nodes" json:"max_nodes,omitempty"`

	// MaxEntriesPerDir bounds the number of entries in one directory
	MaxEntriesPerDir uint64 `mapstructure:"max_entries_per_dir" yaml:"max_entries_per_dir" json:"max_entries_per_dir,omitempty"`

	// MaxPathDepth bounds the number of components from the root to any entry
	MaxPathDepth uint64 `mapstructure:"max_path_depth" yaml:"max_path_depth" json:"max_path_depth,omitempty"`
}

// Usage is a snapshot of the counters a container enforces limits against.
//
// Accounting is logical and per link: a file with three hard links counts as
// three nodes and contributes its size three times.
type Usage struct {
	// TotalBytes is the sum of regular file sizes over all entries
	TotalBytes uint64

	// Nodes is the number of directory entries, the root excluded
	Nodes uint64

	// Entries holds the entry count of every non-empty directory
	Entries map[store.InodeID]uint64
}

// clone returns a deep copy.
func (u *Usage) clone() Usage {
	c := Usage{TotalBytes: u.TotalBytes, Nodes: u.Nodes, Entries: make(map[store.InodeID]uint64, len(u.Entries))}
	for id, n := range u.Entries {
		c.Entries[id] = n
	}
	return c
}

func (u *Usage) addEntry(dir store.InodeID) {
	u.Entries[dir]++
}

func (u *Usage) removeEntry(dir store.InodeID) {
	switch n := u.Entries[dir]; {
	case n > 1:
		u.Entries[dir] = n - 1
	default:
		delete(u.Entries, dir)
	}
}

// addBytes applies a signed delta, clamping at zero.
func (u *Usage) addBytes(delta int64) {
	if delta < 0 && uint64(-delta) > u.TotalBytes {
		u.TotalBytes = 0
		return
	}
	u.TotalBytes = uint64(int64(u.TotalBytes) + delta)
}

func (u *Usage) removeNodes(n uint64) {
	if n > u.Nodes {
		n = u.Nodes
	}
	u.Nodes -= n
}

// Resource names the quantity a capacity check is about.
type Resource string

const (
	ResourceTotalBytes Resource = "total_bytes"
	ResourceFileBytes  Resource = "file_bytes"
	ResourceNodes      Resource = "nodes"
	ResourceDirEntries Resource = "dir_entries"
	ResourcePathDepth  Resource = "path_depth"
)

// CapacityError reports an operation refused because it would exceed a limit.
//
// It carries the ErrCapacityExceeded code, so store.CodeOf and
// errors.Is(err, &store.StoreError{Code: store.ErrCapacityExceeded}) match it.
type CapacityError struct {
	// Resource is the exhausted quantity
	Resource Resource

	// Used is the current value before the operation
	Used uint64

	// Requested is the value the operation would have produced
	Requested uint64

	// Limit is the configured bound
	Limit uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded: %s would be %d (used %d, limit %d)", e.Resource, e.Requested, e.Used, e.Limit)
}

// ErrorCode implements store.Coded.
func (e *CapacityError) ErrorCode() store.ErrorCode {
	return store.ErrCapacityExceeded
}

// Is matches StoreErrors carrying ErrCapacityExceeded.
func (e *CapacityError) Is(target error) bool {
	se, ok := target.(*store.StoreError)
	return ok && se.Code == store.ErrCapacityExceeded
}

// check returns a CapacityError if requested exceeds limit (0 = unlimited).
func check(resource Resource, used, requested, limit uint64) error {
	if limit == 0 || requested <= limit {
		return nil
	}
	return &CapacityError{Resource: resource, Used: used, Requested: requested, Limit: limit}
}
