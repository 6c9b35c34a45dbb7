package badger

import (
	"bytes"
	"fmt"
	"time"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/marmos91/inodefs/pkg/store/content"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// Serialization Strategy
// ======================
//
// Inode records are encoded with XDR (RFC 4506): fixed field order, 4-byte
// alignment, big-endian integers. Timestamps are stored as Unix nanoseconds.
//
// Every record starts with a format version so the layout can evolve; records
// with an unknown version are reported as storage failures.
const recordVersion uint32 = 1

// inodeRecord is the on-disk representation of one inode.
type inodeRecord struct {
	Version   uint32
	ID        uint64
	Type      uint32
	Mode      uint32
	Nlink     uint32
	Size      uint64
	Target    string
	ContentID string
	Crtime    int64
	Mtime     int64
	Atime     int64
}

// newRecord builds a record from an inode and its content reference.
func newRecord(ino *store.Inode, contentID content.ContentID) *inodeRecord {
	return &inodeRecord{
		Version:   recordVersion,
		ID:        uint64(ino.ID),
		Type:      uint32(ino.Type),
		Mode:      ino.Mode,
		Nlink:     ino.Nlink,
		Size:      ino.Size,
		Target:    ino.Target,
		ContentID: string(contentID),
		Crtime:    ino.Crtime.UnixNano(),
		Mtime:     ino.Mtime.UnixNano(),
		Atime:     ino.Atime.UnixNano(),
	}
}

// inode converts the record to the public inode type.
func (r *inodeRecord) inode() *store.Inode {
	return &store.Inode{
		ID:     store.InodeID(r.ID),
		Type:   store.FileType(r.Type),
		Mode:   r.Mode,
		Nlink:  r.Nlink,
		Size:   r.Size,
		Target: r.Target,
		Crtime: time.Unix(0, r.Crtime),
		Mtime:  time.Unix(0, r.Mtime),
		Atime:  time.Unix(0, r.Atime),
	}
}

// apply copies mutable fields back from an updated inode.
func (r *inodeRecord) apply(ino *store.Inode) {
	r.Mode = ino.Mode
	r.Nlink = ino.Nlink
	r.Size = ino.Size
	r.Mtime = ino.Mtime.UnixNano()
	r.Atime = ino.Atime.UnixNano()
}

// encodeRecord serializes a record to XDR bytes.
func encodeRecord(r *inodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, r); err != nil {
		return nil, fmt.Errorf("failed to encode inode record: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRecord deserializes a record from XDR bytes.
func decodeRecord(data []byte) (*inodeRecord, error) {
	var r inodeRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode inode record: %w", err)
	}
	if r.Version != recordVersion {
		return nil, fmt.Errorf("unsupported inode record version %d", r.Version)
	}
	return &r, nil
}
