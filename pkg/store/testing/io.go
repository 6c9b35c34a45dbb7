package testing

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunIOTests executes content read/write tests.
func (suite *StoreTestSuite) RunIOTests(t *testing.T) {
	t.Run("ReadWrite", suite.testReadWrite)
	t.Run("Truncate", suite.testTruncate)
	t.Run("HardLinkContent", suite.testHardLinkContent)
}

func (suite *StoreTestSuite) testReadWrite(test *testing.T) {
	test.Run("Roundtrip", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("hello world"), 0)

		assert.Equal(t, []byte("hello world"), readAll(t, s, id))

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, uint64(11), ino.Size)
	})

	test.Run("EmptyFile", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)

		n, err := s.ReadAt(id, make([]byte, 4), 0)
		assert.Equal(t, 0, n)
		assert.ErrorIs(t, err, io.EOF)
	})

	test.Run("ShortReadReturnsEOF", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("abcdef"), 0)

		buf := make([]byte, 10)
		n, err := s.ReadAt(id, buf, 2)
		assert.Equal(t, 4, n)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, []byte("cdef"), buf[:n])
	})

	test.Run("ExactReadNoEOF", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("abcdef"), 0)

		buf := make([]byte, 3)
		n, err := s.ReadAt(id, buf, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []byte("bcd"), buf)
	})

	test.Run("OverwriteInPlace", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("aaaaaa"), 0)
		mustWrite(t, s, id, []byte("BB"), 2)

		assert.Equal(t, []byte("aaBBaa"), readAll(t, s, id))
	})

	test.Run("GapIsZeroFilled", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("ab"), 0)
		mustWrite(t, s, id, []byte("z"), 5)

		assert.Equal(t, []byte{'a', 'b', 0, 0, 0, 'z'}, readAll(t, s, id))
	})

	test.Run("NegativeOffset", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)

		_, err := s.WriteAt(id, []byte("x"), -1)
		AssertErrorCode(t, store.ErrInvalidArgument, err)
		_, err = s.ReadAt(id, make([]byte, 1), -1)
		AssertErrorCode(t, store.ErrInvalidArgument, err)
	})

	test.Run("OffsetOverflow", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("keep"), 0)

		_, err := s.WriteAt(id, []byte("x"), math.MaxInt64)
		AssertErrorCode(t, store.ErrInvalidArgument, err)
		_, err = s.WriteAt(id, []byte("x"), math.MaxInt64-1)
		AssertErrorCode(t, store.ErrInvalidArgument, err)

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), ino.Size)
		assert.Equal(t, []byte("keep"), readAll(t, s, id))
	})

	test.Run("NotAFile", func(t *testing.T) {
		s := suite.NewStore(t)
		dir := mustCreateLinked(t, s, s.Root(), "dir", store.FileTypeDirectory)
		link := mustCreate(t, s, store.FileTypeSymlink, "/x")

		_, err := s.ReadAt(dir, make([]byte, 1), 0)
		AssertErrorCode(t, store.ErrNotAFile, err)
		_, err = s.WriteAt(link, []byte("x"), 0)
		AssertErrorCode(t, store.ErrNotAFile, err)
		AssertErrorCode(t, store.ErrNotAFile, s.Truncate(dir, 0))
	})

	test.Run("LargeContent", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		data := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)
		mustWrite(t, s, id, data, 0)

		assert.Equal(t, data, readAll(t, s, id))
	})
}

func (suite *StoreTestSuite) testTruncate(test *testing.T) {
	test.Run("Shrink", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("abcdef"), 0)

		require.NoError(t, s.Truncate(id, 3))
		assert.Equal(t, []byte("abc"), readAll(t, s, id))
	})

	test.Run("GrowZeroFills", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("ab"), 0)

		require.NoError(t, s.Truncate(id, 4))
		assert.Equal(t, []byte{'a', 'b', 0, 0}, readAll(t, s, id))
	})

	test.Run("SizeTooLarge", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("keep"), 0)

		AssertErrorCode(t, store.ErrInvalidArgument, s.Truncate(id, 1<<63))

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), ino.Size)
	})

	test.Run("ShrinkThenGrowDoesNotResurrect", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "f", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("secret"), 0)

		require.NoError(t, s.Truncate(id, 0))
		require.NoError(t, s.Truncate(id, 6))
		assert.Equal(t, make([]byte, 6), readAll(t, s, id))
	})
}

func (suite *StoreTestSuite) testHardLinkContent(test *testing.T) {
	test.Run("SharedAcrossLinks", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "a", store.FileTypeRegular)
		require.NoError(t, s.Link(s.Root(), "b", id))

		viaB, err := s.Lookup(s.Root(), "b")
		require.NoError(t, err)
		mustWrite(t, s, viaB, []byte("shared"), 0)

		viaA, err := s.Lookup(s.Root(), "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("shared"), readAll(t, s, viaA))
	})

	test.Run("SurvivesPartialUnlink", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "l0", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("keep"), 0)
		for _, name := range []string{"l1", "l2", "l3"} {
			require.NoError(t, s.Link(s.Root(), name, id))
		}

		for _, name := range []string{"l0", "l1", "l2"} {
			_, err := s.Unlink(s.Root(), name)
			require.NoError(t, err)
		}

		assert.Equal(t, uint32(1), nlink(t, s, id))
		assert.Equal(t, []byte("keep"), readAll(t, s, id))
	})
}
