// Package memory implements in-memory content storage.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/inodefs/pkg/store/content"
)

// MemoryContentStore implements content.ContentStore using in-memory storage.
//
// This implementation stores all content in a map keyed by ContentID. It's designed for:
//   - Testing and development
//   - Volatile containers
//   - Small-scale deployments
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Data is copied on read and
// write so callers never share buffers with the store.
type MemoryContentStore struct {
	// data stores the actual file content keyed by ContentID
	data map[content.ContentID][]byte

	// mu protects concurrent access to data map
	mu sync.RWMutex
}

// NewMemoryContentStore creates a new, empty in-memory content store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{
		data: make(map[content.ContentID][]byte),
	}
}

// ReadAt copies content bytes starting at offset into p.
func (s *MemoryContentStore) ReadAt(ctx context.Context, id content.ContentID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[id]
	if !exists {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	return content.ReadRange(data, p, offset)
}

// WriteAt writes data at the specified offset.
//
// This implements sparse file semantics:
//   - If content doesn't exist: create with zeros up to offset, then data
//   - If offset > current size: extend with zeros, then write data
//   - If offset < current size: overwrite existing data
func (s *MemoryContentStore) WriteAt(ctx context.Context, id content.ContentID, data []byte, offset int64) error {
	// ========================================================================
	// Step 1: Check context before acquiring lock
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	// ========================================================================
	// Step 2: Acquire write lock and splice into a private copy
	// ========================================================================

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[id]
	buf := make([]byte, len(existing))
	copy(buf, existing)

	result, err := content.SpliceAt(buf, data, offset)
	if err != nil {
		return err
	}

	s.data[id] = result
	return nil
}

// Truncate changes the size of the content, creating it if needed.
func (s *MemoryContentStore) Truncate(ctx context.Context, id content.ContentID, size uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[id]
	if exists && uint64(len(existing)) == size {
		return nil
	}

	result, err := content.Resize(existing, size)
	if err != nil {
		return err
	}
	s.data[id] = result
	return nil
}

// Size returns the length of the stored content.
func (s *MemoryContentStore) Size(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[id]
	if !exists {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return uint64(len(data)), nil
}

// Delete removes content. Deleting missing content succeeds.
func (s *MemoryContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}

// Count returns the number of blobs held by the store.
func (s *MemoryContentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
