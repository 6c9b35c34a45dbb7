// Package badger implements store.Storage on top of an embedded BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/inodefs/internal/logger"
	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
	contentbadger "github.com/marmos91/inodefs/pkg/store/content/badger"
)

// BadgerStore implements store.Storage using BadgerDB for persistence.
//
// Inode records, directory entries and the ID counter live in one database
// (see keys.go for the key schema). File content goes to a content.ContentStore,
// by default a badger content store sharing the same database.
//
// Each Storage call runs in a single badger transaction, so a crash never
// leaves a half-applied Link or Unlink behind. Content writes run in their own
// transaction after the metadata checks, under the store mutex.
//
// Thread Safety:
// All operations are protected by a single read-write mutex (mu). BadgerDB is
// itself safe for concurrent use; the mutex serializes read-modify-write
// sequences on inode records and the ID counter.
type BadgerStore struct {
	// mu serializes mutations
	mu sync.RWMutex

	// db is the BadgerDB database handle
	db *badger.DB

	// root is the ID of the root directory, read from m:root
	root store.InodeID

	// nextID mirrors m:next
	nextID store.InodeID

	// content stores file bytes
	content content.ContentStore

	// ownedContent is closed together with the store
	ownedContent io.Closer

	// path is the database directory (empty for in-memory)
	path string
}

// BadgerStoreConfig contains configuration for creating a BadgerDB storage.
type BadgerStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in RAM (no persistence; useful for tests)
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every transaction commit
	SyncWrites bool `mapstructure:"sync_writes"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`

	// Content is the content store for file bytes.
	// nil stores content (zstd-compressed) in the same database.
	Content content.ContentStore `mapstructure:"-"`
}

// NewBadgerStore opens (or creates) a BadgerDB storage.
//
// On first open the root directory is created; on later opens the existing
// root and ID counter are loaded, so the tree survives restarts.
//
// Parameters:
//   - ctx: Context for cancellation during initialization
//   - config: Database location and tuning
//
// Returns:
//   - *BadgerStore: A store ready for use
//   - error: Error if the database cannot be opened or is malformed
func NewBadgerStore(ctx context.Context, config BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.DBPath == "" && !config.InMemory {
		return nil, fmt.Errorf("badger storage requires db_path or in_memory")
	}

	// ========================================================================
	// Step 1: Open the database
	// ========================================================================

	path := config.DBPath
	if config.InMemory {
		path = ""
	}
	opts := badger.DefaultOptions(path).
		WithInMemory(config.InMemory).
		WithSyncWrites(config.SyncWrites).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20).WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	s := &BadgerStore{db: db, content: config.Content, path: path}

	// ========================================================================
	// Step 2: Content backend
	// ========================================================================

	if s.content == nil {
		owned, err := contentbadger.NewBadgerContentStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.ownedContent = owned
		s.content = owned
	}

	// ========================================================================
	// Step 3: Root directory and ID counter
	// ========================================================================

	if err := s.initialize(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	logger.Info("Badger storage ready: path=%q root=%d next_id=%d", path, s.root, s.nextID)
	return s, nil
}

// initialize loads or creates the root directory and the ID counter.
func (s *BadgerStore) initialize() error {
	return s.db.Update(func(txn *badger.Txn) error {
		next, err := getID(txn, keyNextID)
		switch {
		case err == nil:
			s.nextID = next
		case errors.Is(err, badger.ErrKeyNotFound):
			s.nextID = 1
		default:
			return err
		}

		root, err := getID(txn, keyRootID)
		if err == nil {
			s.root = root
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now()
		id, err := s.allocate(txn)
		if err != nil {
			return err
		}
		rootInode := &store.Inode{
			ID:     id,
			Type:   store.FileTypeDirectory,
			Mode:   store.DefaultDirMode,
			Nlink:  1,
			Crtime: now,
			Mtime:  now,
			Atime:  now,
		}
		if err := putRecord(txn, newRecord(rootInode, "")); err != nil {
			return err
		}
		if err := txn.Set(keyRootID, encodeID(id)); err != nil {
			return err
		}
		s.root = id
		return nil
	})
}

// Root returns the ID of the root directory.
func (s *BadgerStore) Root() store.InodeID {
	return s.root
}

// Sync flushes the value log to disk.
func (s *BadgerStore) Sync() error {
	if s.path == "" {
		return nil
	}
	return store.Failure("sync", s.db.Sync())
}

// Close closes the owned content store and the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.ownedContent != nil {
		if err := s.ownedContent.Close(); err != nil {
			errs = append(errs, fmt.Errorf("content: %w", err))
		}
		s.ownedContent = nil
	}
	if !s.db.IsClosed() {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return store.Failure("close", errors.Join(errs...))
}

// allocate reserves the next InodeID and persists the counter in txn.
//
// The in-memory counter is advanced before commit; a failed transaction only
// skips an ID, it never reuses one.
func (s *BadgerStore) allocate(txn *badger.Txn) (store.InodeID, error) {
	id := s.nextID
	s.nextID++
	if err := txn.Set(keyNextID, encodeID(s.nextID)); err != nil {
		return 0, err
	}
	return id, nil
}

// contentContext is the context for content-store calls.
func contentContext() context.Context {
	return context.Background()
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getID(txn *badger.Txn, key []byte) (store.InodeID, error) {
	item, err := txn.Get(key)
	if err != nil {
		return 0, err
	}
	var id store.InodeID
	err = item.Value(func(val []byte) error {
		var decodeErr error
		id, decodeErr = decodeID(val)
		return decodeErr
	})
	return id, err
}

// getRecord loads an inode record, mapping a missing key to ErrNotFound.
func getRecord(txn *badger.Txn, id store.InodeID) (*inodeRecord, error) {
	item, err := txn.Get(keyInode(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.NewError(store.ErrNotFound, "inode %d not found", id)
	}
	if err != nil {
		return nil, store.Failure("get inode", err)
	}

	var rec *inodeRecord
	err = item.Value(func(val []byte) error {
		var decodeErr error
		rec, decodeErr = decodeRecord(val)
		return decodeErr
	})
	if err != nil {
		return nil, store.Failure("get inode", err)
	}
	return rec, nil
}

// getDirRecord loads a record and checks it is a directory.
func getDirRecord(txn *badger.Txn, id store.InodeID) (*inodeRecord, error) {
	rec, err := getRecord(txn, id)
	if err != nil {
		return nil, err
	}
	if store.FileType(rec.Type) != store.FileTypeDirectory {
		return nil, store.NewError(store.ErrNotADirectory, "inode %d is not a directory", id)
	}
	return rec, nil
}

func putRecord(txn *badger.Txn, rec *inodeRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return store.Failure("put inode", err)
	}
	return store.Failure("put inode", txn.Set(keyInode(store.InodeID(rec.ID)), data))
}

// hasEntries reports whether a directory has at least one entry.
func hasEntries(txn *badger.Txn, dir store.InodeID) bool {
	prefix := keyEntryPrefix(dir)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()
	it.Seek(prefix)
	return it.ValidForPrefix(prefix)
}
