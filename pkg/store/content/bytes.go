package content

import (
	"fmt"
	"io"
)

// Helpers shared by blob-at-a-time backends (memory, badger, s3) that apply
// partial updates with read-modify-write.

// MaxBlobSize is the largest blob the read-modify-write helpers build.
//
// Blobs are materialized in memory as a whole, so a write or truncate past
// this size is refused with ErrInvalidOffset instead of being allocated.
const MaxBlobSize = 1 << 34

// CheckRange validates that writing length bytes at offset keeps the blob
// within MaxBlobSize.
func CheckRange(offset int64, length int) error {
	if offset < 0 {
		return fmt.Errorf("offset %d: %w", offset, ErrInvalidOffset)
	}
	if length < 0 || offset > MaxBlobSize-int64(length) {
		return fmt.Errorf("offset %d + %d bytes exceeds %d: %w", offset, length, int64(MaxBlobSize), ErrInvalidOffset)
	}
	return nil
}

// CheckSize validates a truncate target against MaxBlobSize.
func CheckSize(size uint64) error {
	if size > MaxBlobSize {
		return fmt.Errorf("size %d exceeds %d: %w", size, uint64(MaxBlobSize), ErrInvalidOffset)
	}
	return nil
}

// SpliceAt returns existing with data written at offset.
//
// The gap between len(existing) and offset is zero-filled. The returned slice
// never aliases data; it may alias existing when no growth is needed.
func SpliceAt(existing []byte, data []byte, offset int64) ([]byte, error) {
	if err := CheckRange(offset, len(data)); err != nil {
		return nil, err
	}

	end := int(offset) + len(data)
	result := existing
	if end > len(existing) {
		result = make([]byte, end)
		copy(result, existing)
	}
	copy(result[offset:], data)
	return result, nil
}

// Resize returns existing grown with zeros or cut to size.
func Resize(existing []byte, size uint64) ([]byte, error) {
	if err := CheckSize(size); err != nil {
		return nil, err
	}
	if uint64(len(existing)) == size {
		return existing, nil
	}
	result := make([]byte, size)
	copy(result, existing)
	return result, nil
}

// ReadRange copies blob[offset:] into p with io.ReaderAt semantics.
func ReadRange(blob []byte, p []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrInvalidOffset)
	}
	if offset >= int64(len(blob)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, blob[offset:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
