// Package badger implements content storage inside a BadgerDB database.
//
// Content blobs are kept next to the inode records of the badger storage,
// compressed with zstd. Every blob is stored as a single value, so partial
// writes are read-modify-write inside one transaction.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/marmos91/inodefs/pkg/store/content"
)

// Key Namespace:
//
// Data Type     Prefix   Key Format          Value Type
// ======================================================================
// Blob          "cd:"    cd:<contentID>      zstd-compressed bytes
// Blob size     "cs:"    cs:<contentID>      uint64 (big endian)
//
// The size is kept separately so Size() does not decompress the blob.
const (
	prefixData = "cd:"
	prefixSize = "cs:"
)

func keyData(id content.ContentID) []byte { return []byte(prefixData + string(id)) }
func keySize(id content.ContentID) []byte { return []byte(prefixSize + string(id)) }

// BadgerContentStore implements content.ContentStore on top of a BadgerDB.
//
// The database handle is shared with (and owned by) the caller; Close on the
// content store does not close it.
//
// Thread Safety:
// BadgerDB transactions provide isolation; the encoder/decoder are safe for
// concurrent EncodeAll/DecodeAll calls.
type BadgerContentStore struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewBadgerContentStore creates a content store over an open database.
func NewBadgerContentStore(db *badger.DB) (*BadgerContentStore, error) {
	if db == nil {
		return nil, fmt.Errorf("badger database is required")
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &BadgerContentStore{db: db, encoder: encoder, decoder: decoder}, nil
}

// Close releases the compression resources.
func (s *BadgerContentStore) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}

// ReadAt reads len(p) bytes at offset.
func (s *BadgerContentStore) ReadAt(ctx context.Context, id content.ContentID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := s.db.View(func(txn *badger.Txn) error {
		data, err := s.load(txn, id)
		if err != nil {
			return err
		}
		n, err = content.ReadRange(data, p, offset)
		return err
	})
	return n, err
}

// WriteAt splices data into the blob, creating it if needed.
func (s *BadgerContentStore) WriteAt(ctx context.Context, id content.ContentID, data []byte, offset int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.load(txn, id)
		if err != nil && !errors.Is(err, content.ErrContentNotFound) {
			return err
		}

		result, err := content.SpliceAt(existing, data, offset)
		if err != nil {
			return err
		}
		return s.save(txn, id, result)
	})
}

// Truncate resizes the blob, creating it if needed.
func (s *BadgerContentStore) Truncate(ctx context.Context, id content.ContentID, size uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		existing, err := s.load(txn, id)
		if err != nil && !errors.Is(err, content.ErrContentNotFound) {
			return err
		}
		result, err := content.Resize(existing, size)
		if err != nil {
			return err
		}
		return s.save(txn, id, result)
	})
}

// Size returns the blob length without decompressing it.
func (s *BadgerContentStore) Size(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var size uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keySize(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get content size: %w", err)
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("content %s: malformed size record: %w", id, content.ErrIntegrityCheckFailed)
			}
			size = binary.BigEndian.Uint64(val)
			return nil
		})
	})
	return size, err
}

// Delete removes the blob and its size record.
func (s *BadgerContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(keyData(id)); err != nil {
			return fmt.Errorf("failed to delete content: %w", err)
		}
		if err := txn.Delete(keySize(id)); err != nil {
			return fmt.Errorf("failed to delete content size: %w", err)
		}
		return nil
	})
}

// load reads and decompresses a blob inside a transaction.
func (s *BadgerContentStore) load(txn *badger.Txn, id content.ContentID) ([]byte, error) {
	item, err := txn.Get(keyData(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	var data []byte
	err = item.Value(func(val []byte) error {
		decoded, err := s.decoder.DecodeAll(val, nil)
		if err != nil {
			return fmt.Errorf("content %s: %v: %w", id, err, content.ErrIntegrityCheckFailed)
		}
		data = decoded
		return nil
	})
	return data, err
}

// save compresses and stores a blob together with its size.
func (s *BadgerContentStore) save(txn *badger.Txn, id content.ContentID, data []byte) error {
	compressed := s.encoder.EncodeAll(data, nil)
	if err := txn.Set(keyData(id), compressed); err != nil {
		return fmt.Errorf("failed to store content: %w", err)
	}

	size := make([]byte, 8)
	binary.BigEndian.PutUint64(size, uint64(len(data)))
	if err := txn.Set(keySize(id), size); err != nil {
		return fmt.Errorf("failed to store content size: %w", err)
	}
	return nil
}
