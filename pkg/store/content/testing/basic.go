package testing

import (
	"bytes"
	"io"
	"testing"

	"github.com/marmos91/inodefs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes read/size/delete contract tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("ReadAt_NotFound", suite.testReadNotFound)
	t.Run("Size_NotFound", suite.testSizeNotFound)
	t.Run("ReadAt_ShortReadReturnsEOF", suite.testShortRead)
	t.Run("ReadAt_PastEnd", suite.testReadPastEnd)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
	t.Run("LargeContent", suite.testLargeContent)
}

func (suite *StoreTestSuite) testReadNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.ReadAt(testContext(), content.NewContentID(), make([]byte, 4), 0)
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testSizeNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Size(testContext(), content.NewContentID())
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testShortRead(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("hello"), 0)

	buf := make([]byte, 10)
	n, err := store.ReadAt(testContext(), id, buf, 2)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []byte("llo"), buf[:n])
}

func (suite *StoreTestSuite) testReadPastEnd(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("abc"), 0)

	n, err := store.ReadAt(testContext(), id, make([]byte, 2), 10)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("gone"), 0)

	require.NoError(t, store.Delete(testContext(), id))
	require.NoError(t, store.Delete(testContext(), id))

	_, err := store.Size(testContext(), id)
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testLargeContent(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	data := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)
	mustWrite(t, store, id, data, 0)

	assert.Equal(t, data, readAll(t, store, id))
}
