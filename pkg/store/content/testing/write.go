package testing

import (
	"math"
	"testing"

	"github.com/marmos91/inodefs/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWriteTests executes write and truncate contract tests.
func (suite *StoreTestSuite) RunWriteTests(t *testing.T) {
	t.Run("WriteAt_Overwrite", suite.testOverwrite)
	t.Run("WriteAt_GapIsZeroFilled", suite.testWriteGap)
	t.Run("WriteAt_NegativeOffset", suite.testNegativeOffset)
	t.Run("WriteAt_OffsetOverflow", suite.testOffsetOverflow)
	t.Run("Truncate_Shrink", suite.testTruncateShrink)
	t.Run("Truncate_Grow", suite.testTruncateGrow)
	t.Run("Truncate_CreatesContent", suite.testTruncateCreates)
	t.Run("Truncate_TooLarge", suite.testTruncateTooLarge)
}

func (suite *StoreTestSuite) testOverwrite(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("hello world"), 0)
	mustWrite(t, store, id, []byte("WORLD"), 6)

	assert.Equal(t, []byte("hello WORLD"), readAll(t, store, id))
}

func (suite *StoreTestSuite) testWriteGap(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("ab"), 0)
	mustWrite(t, store, id, []byte("z"), 5)

	assert.Equal(t, []byte{'a', 'b', 0, 0, 0, 'z'}, readAll(t, store, id))
}

func (suite *StoreTestSuite) testNegativeOffset(t *testing.T) {
	store := suite.NewStore(t)

	err := store.WriteAt(testContext(), content.NewContentID(), []byte("x"), -1)
	assert.ErrorIs(t, err, content.ErrInvalidOffset)
}

func (suite *StoreTestSuite) testOffsetOverflow(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("ab"), 0)

	err := store.WriteAt(testContext(), id, []byte("x"), math.MaxInt64)
	assert.ErrorIs(t, err, content.ErrInvalidOffset)
	assert.Equal(t, []byte("ab"), readAll(t, store, id))
}

func (suite *StoreTestSuite) testTruncateTooLarge(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("ab"), 0)

	err := store.Truncate(testContext(), id, 1<<63)
	assert.ErrorIs(t, err, content.ErrInvalidOffset)
	assert.Equal(t, []byte("ab"), readAll(t, store, id))
}

func (suite *StoreTestSuite) testTruncateShrink(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("abcdef"), 0)

	require.NoError(t, store.Truncate(testContext(), id, 2))
	assert.Equal(t, []byte("ab"), readAll(t, store, id))
}

func (suite *StoreTestSuite) testTruncateGrow(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()
	mustWrite(t, store, id, []byte("ab"), 0)

	require.NoError(t, store.Truncate(testContext(), id, 4))
	assert.Equal(t, []byte{'a', 'b', 0, 0}, readAll(t, store, id))
}

func (suite *StoreTestSuite) testTruncateCreates(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewContentID()

	require.NoError(t, store.Truncate(testContext(), id, 3))
	size, err := store.Size(testContext(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), size)
}
