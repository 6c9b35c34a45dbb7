package testing

import (
	"context"
	"testing"

	"github.com/marmos91/inodefs/pkg/store/content"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a comprehensive test suite for ContentStore implementations.
// It tests the interface contract, not implementation details, making it reusable
// across different implementations (memory, badger, S3, etc.).
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.ContentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh ContentStore instance
	// for each test. This ensures test isolation.
	NewStore func(t *testing.T) content.ContentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("WriteOperations", suite.RunWriteTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

// mustWrite writes data at offset and fails the test on error.
func mustWrite(t *testing.T, store content.ContentStore, id content.ContentID, data []byte, offset int64) {
	t.Helper()
	require.NoError(t, store.WriteAt(testContext(), id, data, offset))
}

// readAll reads the complete blob.
func readAll(t *testing.T, store content.ContentStore, id content.ContentID) []byte {
	t.Helper()
	size, err := store.Size(testContext(), id)
	require.NoError(t, err)

	buf := make([]byte, size)
	n, err := store.ReadAt(testContext(), id, buf, 0)
	if size > 0 {
		require.NoError(t, err)
	}
	return buf[:n]
}
