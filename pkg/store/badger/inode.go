package badger

import (
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
)

// CreateInode allocates a fresh inode with link count 0.
func (s *BadgerStore) CreateInode(fileType store.FileType, mode uint32, target string) (store.InodeID, error) {
	if err := store.ValidateNewInode(fileType, target); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id store.InodeID
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		id, err = s.allocate(txn)
		if err != nil {
			return store.Failure("allocate inode", err)
		}

		now := time.Now()
		ino := &store.Inode{
			ID:     id,
			Type:   fileType,
			Mode:   store.EffectiveMode(fileType, mode),
			Target: target,
			Crtime: now,
			Mtime:  now,
			Atime:  now,
		}

		var contentID content.ContentID
		switch fileType {
		case store.FileTypeRegular:
			contentID = content.NewContentID()
		case store.FileTypeSymlink:
			ino.Size = uint64(len(target))
		}

		return putRecord(txn, newRecord(ino, contentID))
	})
	if err != nil {
		return 0, store.Failure("create inode", err)
	}
	return id, nil
}

// GetInode returns the inode record.
func (s *BadgerStore) GetInode(id store.InodeID) (*store.Inode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ino *store.Inode
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		ino = rec.inode()
		return nil
	})
	return ino, store.Failure("get inode", err)
}

// UpdateInode applies the selected attributes.
func (s *BadgerStore) UpdateInode(id store.InodeID, attrs *store.SetAttrs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		ino := rec.inode()
		store.ApplySetAttrs(ino, attrs)
		rec.apply(ino)
		return putRecord(txn, rec)
	})
	return store.Failure("update inode", err)
}

// DeleteInode removes an unreferenced inode and releases its content.
func (s *BadgerStore) DeleteInode(id store.InodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var contentID content.ContentID
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		if id == s.root || rec.Nlink > 0 {
			return store.NewError(store.ErrInodeInUse, "inode %d still has %d links", id, rec.Nlink)
		}
		if store.FileType(rec.Type) == store.FileTypeDirectory && hasEntries(txn, id) {
			return store.NewError(store.ErrDirectoryNotEmpty, "directory %d is not empty", id)
		}
		contentID = content.ContentID(rec.ContentID)
		return txn.Delete(keyInode(id))
	})
	if err != nil {
		return store.Failure("delete inode", err)
	}

	// The record is gone; a failed blob delete leaves an orphan blob but no
	// dangling reference.
	if contentID != "" {
		if err := s.content.Delete(contentContext(), contentID); err != nil {
			return store.Failure("delete content", err)
		}
	}
	return nil
}
