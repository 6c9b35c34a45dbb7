// Package testing provides a conformance suite for store.Storage implementations.
package testing

import (
	"testing"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a comprehensive test suite for Storage implementations.
// It tests the interface contract, not implementation details, making it reusable
// across different implementations (memory, badger, etc.).
//
// Usage:
//
//	func TestMyStorage(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) store.Storage {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh Storage instance
	// for each test. This ensures test isolation.
	NewStore func(t *testing.T) store.Storage
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("InodeOperations", suite.RunInodeTests)
	t.Run("DirectoryOperations", suite.RunDirectoryTests)
	t.Run("IOOperations", suite.RunIOTests)
}

// ============================================================================
// Helpers
// ============================================================================

// AssertErrorCode checks that err carries the expected store.ErrorCode.
func AssertErrorCode(t *testing.T, expected store.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := store.CodeOf(err)
	require.True(t, ok, "error %v carries no ErrorCode", err)
	assert.Equal(t, expected, code, "unexpected error code for %v", err)
}

// mustCreate creates an inode and fails the test on error.
func mustCreate(t *testing.T, s store.Storage, fileType store.FileType, target string) store.InodeID {
	t.Helper()
	id, err := s.CreateInode(fileType, 0, target)
	require.NoError(t, err)
	return id
}

// mustCreateLinked creates an inode and links it under parent.
func mustCreateLinked(t *testing.T, s store.Storage, parent store.InodeID, name string, fileType store.FileType) store.InodeID {
	t.Helper()
	id := mustCreate(t, s, fileType, "")
	require.NoError(t, s.Link(parent, name, id))
	return id
}

// mustWrite writes data at offset.
func mustWrite(t *testing.T, s store.Storage, id store.InodeID, data []byte, offset int64) {
	t.Helper()
	n, err := s.WriteAt(id, data, offset)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
}

// readAll reads the complete content of a file inode.
func readAll(t *testing.T, s store.Storage, id store.InodeID) []byte {
	t.Helper()
	ino, err := s.GetInode(id)
	require.NoError(t, err)

	buf := make([]byte, ino.Size)
	n, err := s.ReadAt(id, buf, 0)
	if ino.Size > 0 {
		require.NoError(t, err)
	}
	return buf[:n]
}

// nlink returns the current link count of an inode.
func nlink(t *testing.T, s store.Storage, id store.InodeID) uint32 {
	t.Helper()
	ino, err := s.GetInode(id)
	require.NoError(t, err)
	return ino.Nlink
}
