package memory

import (
	"sort"
	"time"

	"github.com/marmos91/inodefs/pkg/store"
)

// Link adds the entry (parent, name) -> child.
func (s *MemoryStore) Link(parent store.InodeID, name string, child store.InodeID) error {
	if name == "" {
		return store.NewError(store.ErrInvalidName, "empty entry name")
	}
	if parent == child {
		return store.NewError(store.ErrWouldCreateCycle, "cannot link directory %d into itself", child)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// ========================================================================
	// Step 1: Validate parent and child
	// ========================================================================

	parentData, entries, err := s.getDir(parent)
	if err != nil {
		return err
	}
	childData, err := s.get(child)
	if err != nil {
		return err
	}
	if _, exists := entries[name]; exists {
		return store.NewError(store.ErrEntryExists, "entry %q already exists in directory %d", name, parent)
	}
	if childData.Attr.IsDir() && childData.Attr.Nlink > 0 {
		return store.NewError(store.ErrIsADirectory, "directory %d is already linked", child)
	}

	// ========================================================================
	// Step 2: Add the entry
	// ========================================================================

	entries[name] = child
	childData.Attr.Nlink++
	parentData.Attr.Mtime = time.Now()
	return nil
}

// Unlink removes the entry (parent, name) and returns the child it named.
func (s *MemoryStore) Unlink(parent store.InodeID, name string) (store.InodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parentData, entries, err := s.getDir(parent)
	if err != nil {
		return 0, err
	}
	child, exists := entries[name]
	if !exists {
		return 0, store.NewError(store.ErrEntryNotFound, "no entry %q in directory %d", name, parent)
	}
	childData, err := s.get(child)
	if err != nil {
		return 0, err
	}
	delete(entries, name)
	if childData.Attr.Nlink > 0 {
		childData.Attr.Nlink--
	}
	parentData.Attr.Mtime = time.Now()
	return child, nil
}

// Lookup resolves a name inside a directory.
func (s *MemoryStore) Lookup(parent store.InodeID, name string) (store.InodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, entries, err := s.getDir(parent)
	if err != nil {
		return 0, err
	}
	child, exists := entries[name]
	if !exists {
		return 0, store.NewError(store.ErrEntryNotFound, "no entry %q in directory %d", name, parent)
	}
	return child, nil
}

// ReadDir returns a sorted snapshot of the directory entries.
func (s *MemoryStore) ReadDir(dir store.InodeID) ([]store.DirEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, entries, err := s.getDir(dir)
	if err != nil {
		return nil, err
	}

	result := make([]store.DirEntry, 0, len(entries))
	for name, id := range entries {
		result = append(result, store.DirEntry{Name: name, ID: id})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
