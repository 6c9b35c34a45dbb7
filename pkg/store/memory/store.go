package memory

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
	contentmemory "github.com/marmos91/inodefs/pkg/store/content/memory"
)

// inodeData is the arena slot for one inode.
//
// The public record is kept by value; GetInode hands out clones so callers can
// never mutate the arena. ContentID is private to the storage.
type inodeData struct {
	// Attr is the public inode record
	Attr store.Inode

	// ContentID references the file bytes (regular files only)
	ContentID content.ContentID
}

// MemoryStore implements store.Storage using in-memory data structures.
//
// The store is an arena keyed by InodeID: every inode lives in the inodes map
// and every directory has an entry map in children. Nothing holds pointers to
// other inodes, so the graph can never form reference cycles in memory; the
// tree shape is enforced by Link refusing a second entry for a directory.
//
// Thread Safety:
// All operations are protected by a single read-write mutex (mu), making the
// store safe for concurrent access from multiple goroutines. The engine does not
// rely on this, but it keeps the store usable on its own.
//
// Storage Model:
//
//  1. Inodes (inodes):
//     Maps InodeID to the inode record and its content reference.
//
//  2. Directory Entries (children):
//     Maps each directory InodeID to its entries (name -> child InodeID).
//     Only directories have an entry here.
//
//  3. Content (content):
//     File bytes live in a content.ContentStore, addressed by ContentID.
//     Blobs are created lazily on first write and released by DeleteInode.
//
// Consistency Guarantees:
//   - Every inode in 'inodes' with Type == Directory has an entry in 'children'
//   - Every ID referenced in 'children' exists in 'inodes'
//   - Attr.Nlink equals the number of entries naming the inode (root: 1)
//   - IDs are allocated from nextID and never reused
type MemoryStore struct {
	// mu protects all fields in this struct for concurrent access.
	mu sync.RWMutex

	// inodes is the arena of inode records
	inodes map[store.InodeID]*inodeData

	// children holds directory entries for each directory inode
	children map[store.InodeID]map[string]store.InodeID

	// nextID is the next InodeID to allocate
	nextID store.InodeID

	// root is the ID of the root directory
	root store.InodeID

	// content stores file bytes
	content content.ContentStore

	// closed is set by Close
	closed bool
}

// MemoryStoreConfig contains configuration for creating a memory store.
type MemoryStoreConfig struct {
	// Content is the content store for file bytes.
	// nil selects a fresh in-memory content store.
	Content content.ContentStore
}

// NewMemoryStore creates a new in-memory storage containing only the root directory.
//
// Parameters:
//   - config: Configuration (content backend)
//
// Returns:
//   - *MemoryStore: A new store instance ready for use
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	cs := config.Content
	if cs == nil {
		cs = contentmemory.NewMemoryContentStore()
	}

	s := &MemoryStore{
		inodes:   make(map[store.InodeID]*inodeData),
		children: make(map[store.InodeID]map[string]store.InodeID),
		nextID:   1,
		content:  cs,
	}

	now := time.Now()
	s.root = s.allocate()
	s.inodes[s.root] = &inodeData{
		Attr: store.Inode{
			ID:     s.root,
			Type:   store.FileTypeDirectory,
			Mode:   store.DefaultDirMode,
			Nlink:  1,
			Crtime: now,
			Mtime:  now,
			Atime:  now,
		},
	}
	s.children[s.root] = make(map[string]store.InodeID)

	return s
}

// NewMemoryStoreWithDefaults creates a memory store with an in-memory content store.
func NewMemoryStoreWithDefaults() *MemoryStore {
	return NewMemoryStore(MemoryStoreConfig{})
}

// Root returns the ID of the root directory.
func (s *MemoryStore) Root() store.InodeID {
	return s.root
}

// Sync is a no-op: the store is volatile.
func (s *MemoryStore) Sync() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.NewError(store.ErrStorageFailure, "store is closed")
	}
	return nil
}

// Close drops all state. The store must not be used afterwards.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.inodes = make(map[store.InodeID]*inodeData)
	s.children = make(map[store.InodeID]map[string]store.InodeID)
	return nil
}

// Count returns the number of allocated inodes, root included.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inodes)
}

// allocate returns the next unused InodeID.
// Thread Safety: Must be called with write lock held.
func (s *MemoryStore) allocate() store.InodeID {
	id := s.nextID
	s.nextID++
	return id
}

// get returns the arena slot of id or ErrNotFound.
// Thread Safety: Must be called with lock held (read or write).
func (s *MemoryStore) get(id store.InodeID) (*inodeData, error) {
	data, ok := s.inodes[id]
	if !ok {
		return nil, store.NewError(store.ErrNotFound, "inode %d not found", id)
	}
	return data, nil
}

// getDir returns the entries map of a directory.
// Thread Safety: Must be called with lock held (read or write).
func (s *MemoryStore) getDir(id store.InodeID) (*inodeData, map[string]store.InodeID, error) {
	data, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}
	if !data.Attr.IsDir() {
		return nil, nil, store.NewError(store.ErrNotADirectory, "inode %d is not a directory", id)
	}
	return data, s.children[id], nil
}

// contentContext is the context for content-store calls.
//
// The storage contract carries no context; cancellation is owned by each
// content backend (the S3 store bounds every request with its own timeout).
func contentContext() context.Context {
	return context.Background()
}
