package memory

import (
	"time"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
)

// CreateInode allocates a fresh inode with link count 0.
func (s *MemoryStore) CreateInode(fileType store.FileType, mode uint32, target string) (store.InodeID, error) {
	if err := store.ValidateNewInode(fileType, target); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, store.NewError(store.ErrStorageFailure, "store is closed")
	}

	now := time.Now()
	id := s.allocate()
	data := &inodeData{
		Attr: store.Inode{
			ID:     id,
			Type:   fileType,
			Mode:   store.EffectiveMode(fileType, mode),
			Target: target,
			Crtime: now,
			Mtime:  now,
			Atime:  now,
		},
	}

	switch fileType {
	case store.FileTypeRegular:
		data.ContentID = content.NewContentID()
	case store.FileTypeDirectory:
		s.children[id] = make(map[string]store.InodeID)
	case store.FileTypeSymlink:
		data.Attr.Size = uint64(len(target))
	}

	s.inodes[id] = data
	return id, nil
}

// GetInode returns a copy of the inode record.
func (s *MemoryStore) GetInode(id store.InodeID) (*store.Inode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return data.Attr.Clone(), nil
}

// UpdateInode applies the selected attributes.
func (s *MemoryStore) UpdateInode(id store.InodeID, attrs *store.SetAttrs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(id)
	if err != nil {
		return err
	}
	store.ApplySetAttrs(&data.Attr, attrs)
	return nil
}

// DeleteInode removes an unreferenced inode and releases its content.
func (s *MemoryStore) DeleteInode(id store.InodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(id)
	if err != nil {
		return err
	}
	if id == s.root || data.Attr.Nlink > 0 {
		return store.NewError(store.ErrInodeInUse, "inode %d still has %d links", id, data.Attr.Nlink)
	}
	if data.Attr.IsDir() && len(s.children[id]) > 0 {
		return store.NewError(store.ErrDirectoryNotEmpty, "directory %d is not empty", id)
	}

	if data.ContentID != "" {
		if err := s.content.Delete(contentContext(), data.ContentID); err != nil {
			return store.Failure("delete content", err)
		}
	}

	delete(s.inodes, id)
	delete(s.children, id)
	return nil
}
