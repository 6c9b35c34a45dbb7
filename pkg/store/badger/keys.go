package badger

import (
	"encoding/binary"

	"github.com/marmos91/inodefs/pkg/store"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so we use prefixed keys to organize different
// data types into logical namespaces.
//
// Inode IDs are encoded as fixed-width big-endian uint64 values inside keys.
// Fixed width keeps entry keys unambiguous (names may contain any byte,
// including ':') and makes an entry range scan return names in byte order,
// which is exactly the order ReadDir promises.
//
// Key Namespace Prefixes:
//
// Data Type        Prefix   Key Format                 Value Type
// ===================================================================
// Inode record     "i:"     i:<id>                     inodeRecord (XDR)
// Directory entry  "e:"     e:<parentID><name>         child ID (uint64)
// Next ID          "m:"     m:next                     uint64
// Root ID          "m:"     m:root                     uint64
//
// Content blobs use their own prefixes (see pkg/store/content/badger) so a
// single database can hold both.
const (
	prefixInode = "i:"
	prefixEntry = "e:"
)

var (
	keyNextID = []byte("m:next")
	keyRootID = []byte("m:root")
)

// keyInode generates the key for an inode record.
func keyInode(id store.InodeID) []byte {
	key := make([]byte, len(prefixInode)+8)
	copy(key, prefixInode)
	binary.BigEndian.PutUint64(key[len(prefixInode):], uint64(id))
	return key
}

// keyEntryPrefix generates the range-scan prefix for the entries of a directory.
func keyEntryPrefix(parent store.InodeID) []byte {
	key := make([]byte, len(prefixEntry)+8)
	copy(key, prefixEntry)
	binary.BigEndian.PutUint64(key[len(prefixEntry):], uint64(parent))
	return key
}

// keyEntry generates the key for the entry (parent, name).
func keyEntry(parent store.InodeID, name string) []byte {
	return append(keyEntryPrefix(parent), name...)
}

// entryName extracts the name from an entry key.
func entryName(key []byte) string {
	return string(key[len(prefixEntry)+8:])
}

func encodeID(id store.InodeID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func decodeID(val []byte) (store.InodeID, error) {
	if len(val) != 8 {
		return 0, store.NewError(store.ErrStorageFailure, "malformed inode id (%d bytes)", len(val))
	}
	return store.InodeID(binary.BigEndian.Uint64(val)), nil
}
