package badger

import (
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/inodefs/pkg/store"
)

// Link adds the entry (parent, name) -> child.
func (s *BadgerStore) Link(parent store.InodeID, name string, child store.InodeID) error {
	if name == "" {
		return store.NewError(store.ErrInvalidName, "empty entry name")
	}
	if parent == child {
		return store.NewError(store.ErrWouldCreateCycle, "cannot link directory %d into itself", child)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		// ====================================================================
		// Step 1: Validate parent and child
		// ====================================================================

		parentRec, err := getDirRecord(txn, parent)
		if err != nil {
			return err
		}
		childRec, err := getRecord(txn, child)
		if err != nil {
			return err
		}

		entryKey := keyEntry(parent, name)
		if _, err := txn.Get(entryKey); err == nil {
			return store.NewError(store.ErrEntryExists, "entry %q already exists in directory %d", name, parent)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if store.FileType(childRec.Type) == store.FileTypeDirectory && childRec.Nlink > 0 {
			return store.NewError(store.ErrIsADirectory, "directory %d is already linked", child)
		}

		// ====================================================================
		// Step 2: Write entry, bump link count, touch parent
		// ====================================================================

		if err := txn.Set(entryKey, encodeID(child)); err != nil {
			return err
		}

		childRec.Nlink++
		if err := putRecord(txn, childRec); err != nil {
			return err
		}

		parentRec.Mtime = time.Now().UnixNano()
		return putRecord(txn, parentRec)
	})
	return store.Failure("link", err)
}

// Unlink removes the entry (parent, name) and returns the child it named.
func (s *BadgerStore) Unlink(parent store.InodeID, name string) (store.InodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var child store.InodeID
	err := s.db.Update(func(txn *badger.Txn) error {
		parentRec, err := getDirRecord(txn, parent)
		if err != nil {
			return err
		}

		entryKey := keyEntry(parent, name)
		child, err = getID(txn, entryKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.NewError(store.ErrEntryNotFound, "no entry %q in directory %d", name, parent)
		}
		if err != nil {
			return err
		}

		childRec, err := getRecord(txn, child)
		if err != nil {
			return err
		}
		if err := txn.Delete(entryKey); err != nil {
			return err
		}
		if childRec.Nlink > 0 {
			childRec.Nlink--
		}
		if err := putRecord(txn, childRec); err != nil {
			return err
		}

		parentRec.Mtime = time.Now().UnixNano()
		return putRecord(txn, parentRec)
	})
	if err != nil {
		return 0, store.Failure("unlink", err)
	}
	return child, nil
}

// Lookup resolves a name inside a directory.
func (s *BadgerStore) Lookup(parent store.InodeID, name string) (store.InodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var child store.InodeID
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getDirRecord(txn, parent); err != nil {
			return err
		}
		var err error
		child, err = getID(txn, keyEntry(parent, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.NewError(store.ErrEntryNotFound, "no entry %q in directory %d", name, parent)
		}
		return err
	})
	if err != nil {
		return 0, store.Failure("lookup", err)
	}
	return child, nil
}

// ReadDir lists the entries of a directory with a prefix scan.
//
// Keys are ordered bytewise and share the parent prefix, so the scan yields
// entries already sorted by name.
func (s *BadgerStore) ReadDir(dir store.InodeID) ([]store.DirEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []store.DirEntry
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getDirRecord(txn, dir); err != nil {
			return err
		}

		prefix := keyEntryPrefix(dir)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		entries = make([]store.DirEntry, 0)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := entryName(item.Key())
			err := item.Value(func(val []byte) error {
				id, err := decodeID(val)
				if err != nil {
					return err
				}
				entries = append(entries, store.DirEntry{Name: name, ID: id})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.Failure("readdir", err)
	}
	return entries, nil
}
