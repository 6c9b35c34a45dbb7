package memory

import (
	"io"
	"time"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
)

// ReadAt reads file content with io.ReaderAt semantics.
func (s *MemoryStore) ReadAt(id store.InodeID, buf []byte, offset int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.getFile(id)
	if err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, store.NewError(store.ErrInvalidArgument, "negative offset %d", offset)
	}

	want, eof := store.ClampRead(data.Attr.Size, len(buf), offset)
	if want == 0 {
		if eof {
			return 0, io.EOF
		}
		return 0, nil
	}

	n, err := s.content.ReadAt(contentContext(), data.ContentID, buf[:want], offset)
	if err != nil && err != io.EOF {
		return n, store.Failure("read content", err)
	}
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes data at offset, zero-filling any gap.
func (s *MemoryStore) WriteAt(id store.InodeID, data []byte, offset int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.getFile(id)
	if err != nil {
		return 0, err
	}
	if err := content.CheckRange(offset, len(data)); err != nil {
		return 0, &store.StoreError{Code: store.ErrInvalidArgument, Message: "write", Err: err}
	}

	if len(data) == 0 {
		return 0, nil
	}

	if err := s.content.WriteAt(contentContext(), file.ContentID, data, offset); err != nil {
		return 0, store.Failure("write content", err)
	}

	if end := uint64(offset) + uint64(len(data)); end > file.Attr.Size {
		file.Attr.Size = end
	}
	file.Attr.Mtime = time.Now()
	return len(data), nil
}

// Truncate sets the content size.
func (s *MemoryStore) Truncate(id store.InodeID, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.getFile(id)
	if err != nil {
		return err
	}
	if err := content.CheckSize(size); err != nil {
		return &store.StoreError{Code: store.ErrInvalidArgument, Message: "truncate", Err: err}
	}

	if err := s.content.Truncate(contentContext(), file.ContentID, size); err != nil {
		return store.Failure("truncate content", err)
	}
	file.Attr.Size = size
	file.Attr.Mtime = time.Now()
	return nil
}

// getFile returns the arena slot of a regular file.
// Thread Safety: Must be called with lock held (read or write).
func (s *MemoryStore) getFile(id store.InodeID) (*inodeData, error) {
	data, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !data.Attr.IsRegular() {
		return nil, store.NewError(store.ErrNotAFile, "inode %d is a %s", id, data.Attr.Type)
	}
	return data, nil
}
