package badger

import (
	"io"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
)

// ReadAt reads file content with io.ReaderAt semantics.
func (s *BadgerStore) ReadAt(id store.InodeID, buf []byte, offset int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.fileRecord(id)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, store.NewError(store.ErrInvalidArgument, "negative offset %d", offset)
	}

	want, eof := store.ClampRead(rec.Size, len(buf), offset)
	if want == 0 {
		if eof {
			return 0, io.EOF
		}
		return 0, nil
	}

	n, err := s.content.ReadAt(contentContext(), content.ContentID(rec.ContentID), buf[:want], offset)
	if err != nil && err != io.EOF {
		return n, store.Failure("read content", err)
	}
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes data at offset, zero-filling any gap.
func (s *BadgerStore) WriteAt(id store.InodeID, data []byte, offset int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.fileRecord(id)
	if err != nil {
		return 0, err
	}
	if err := content.CheckRange(offset, len(data)); err != nil {
		return 0, &store.StoreError{Code: store.ErrInvalidArgument, Message: "write", Err: err}
	}
	if len(data) == 0 {
		return 0, nil
	}

	if err := s.content.WriteAt(contentContext(), content.ContentID(rec.ContentID), data, offset); err != nil {
		return 0, store.Failure("write content", err)
	}

	size := rec.Size
	if end := uint64(offset) + uint64(len(data)); end > size {
		size = end
	}
	if err := s.setSize(id, size); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Truncate sets the content size.
func (s *BadgerStore) Truncate(id store.InodeID, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.fileRecord(id)
	if err != nil {
		return err
	}
	if err := content.CheckSize(size); err != nil {
		return &store.StoreError{Code: store.ErrInvalidArgument, Message: "truncate", Err: err}
	}
	if err := s.content.Truncate(contentContext(), content.ContentID(rec.ContentID), size); err != nil {
		return store.Failure("truncate content", err)
	}
	return s.setSize(id, size)
}

// fileRecord loads the record of a regular file.
// Thread Safety: Must be called with lock held (read or write).
func (s *BadgerStore) fileRecord(id store.InodeID) (*inodeRecord, error) {
	var rec *inodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		if err != nil {
			return err
		}
		if store.FileType(rec.Type) != store.FileTypeRegular {
			return store.NewError(store.ErrNotAFile, "inode %d is a %s", id, store.FileType(rec.Type))
		}
		return nil
	})
	if err != nil {
		return nil, store.Failure("get inode", err)
	}
	return rec, nil
}

// setSize records the new size and mtime of a file.
// Thread Safety: Must be called with write lock held.
func (s *BadgerStore) setSize(id store.InodeID, size uint64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		rec.Size = size
		rec.Mtime = time.Now().UnixNano()
		return putRecord(txn, rec)
	})
	return store.Failure("update size", err)
}
