package testing

import (
	"testing"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDirectoryTests executes link, unlink, lookup and listing tests.
func (suite *StoreTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("Link", suite.testLink)
	t.Run("Unlink", suite.testUnlink)
	t.Run("Lookup", suite.testLookup)
	t.Run("ReadDir", suite.testReadDir)
}

func (suite *StoreTestSuite) testLink(test *testing.T) {
	test.Run("LinkIncrementsNlink", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreate(t, s, store.FileTypeRegular, "")

		require.NoError(t, s.Link(s.Root(), "a", id))
		assert.Equal(t, uint32(1), nlink(t, s, id))

		require.NoError(t, s.Link(s.Root(), "b", id))
		assert.Equal(t, uint32(2), nlink(t, s, id))
	})

	test.Run("EntryExists", func(t *testing.T) {
		s := suite.NewStore(t)
		mustCreateLinked(t, s, s.Root(), "a", store.FileTypeRegular)
		other := mustCreate(t, s, store.FileTypeRegular, "")

		AssertErrorCode(t, store.ErrEntryExists, s.Link(s.Root(), "a", other))
		assert.Equal(t, uint32(0), nlink(t, s, other))
	})

	test.Run("ParentNotADirectory", func(t *testing.T) {
		s := suite.NewStore(t)
		file := mustCreateLinked(t, s, s.Root(), "file", store.FileTypeRegular)
		child := mustCreate(t, s, store.FileTypeRegular, "")

		AssertErrorCode(t, store.ErrNotADirectory, s.Link(file, "x", child))
	})

	test.Run("MissingParentOrChild", func(t *testing.T) {
		s := suite.NewStore(t)
		child := mustCreate(t, s, store.FileTypeRegular, "")

		AssertErrorCode(t, store.ErrNotFound, s.Link(store.InodeID(987654), "x", child))
		AssertErrorCode(t, store.ErrNotFound, s.Link(s.Root(), "x", store.InodeID(987654)))
	})

	test.Run("DirectoryHardLinkRefused", func(t *testing.T) {
		s := suite.NewStore(t)
		dir := mustCreateLinked(t, s, s.Root(), "dir", store.FileTypeDirectory)

		AssertErrorCode(t, store.ErrIsADirectory, s.Link(s.Root(), "alias", dir))
		assert.Equal(t, uint32(1), nlink(t, s, dir))
	})

	test.Run("SymlinkHardLink", func(t *testing.T) {
		s := suite.NewStore(t)
		link := mustCreate(t, s, store.FileTypeSymlink, "/target")
		require.NoError(t, s.Link(s.Root(), "l1", link))
		require.NoError(t, s.Link(s.Root(), "l2", link))
		assert.Equal(t, uint32(2), nlink(t, s, link))
	})
}

func (suite *StoreTestSuite) testUnlink(test *testing.T) {
	test.Run("UnlinkDecrementsNlink", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "a", store.FileTypeRegular)
		require.NoError(t, s.Link(s.Root(), "b", id))

		got, err := s.Unlink(s.Root(), "a")
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.Equal(t, uint32(1), nlink(t, s, id))

		// Unlink does not delete the inode
		_, err = s.Unlink(s.Root(), "b")
		require.NoError(t, err)
		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), ino.Nlink)
	})

	test.Run("EntryNotFound", func(t *testing.T) {
		s := suite.NewStore(t)
		_, err := s.Unlink(s.Root(), "missing")
		AssertErrorCode(t, store.ErrEntryNotFound, err)
	})

	test.Run("NonEmptyDirectoryKeepsChildren", func(t *testing.T) {
		s := suite.NewStore(t)
		dir := mustCreateLinked(t, s, s.Root(), "dir", store.FileTypeDirectory)
		file := mustCreateLinked(t, s, dir, "file", store.FileTypeRegular)

		got, err := s.Unlink(s.Root(), "dir")
		require.NoError(t, err)
		assert.Equal(t, dir, got)

		_, err = s.Lookup(s.Root(), "dir")
		AssertErrorCode(t, store.ErrEntryNotFound, err)

		ino, err := s.GetInode(dir)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), ino.Nlink)

		child, err := s.Lookup(dir, "file")
		require.NoError(t, err)
		assert.Equal(t, file, child)

		// Still not deletable while it has entries
		AssertErrorCode(t, store.ErrDirectoryNotEmpty, s.DeleteInode(dir))
	})

	test.Run("RelinkDirectoryAfterUnlink", func(t *testing.T) {
		s := suite.NewStore(t)
		dir := mustCreateLinked(t, s, s.Root(), "dir", store.FileTypeDirectory)
		other := mustCreateLinked(t, s, s.Root(), "other", store.FileTypeDirectory)

		_, err := s.Unlink(s.Root(), "dir")
		require.NoError(t, err)
		require.NoError(t, s.Link(other, "moved", dir))
		assert.Equal(t, uint32(1), nlink(t, s, dir))
	})
}

func (suite *StoreTestSuite) testLookup(test *testing.T) {
	test.Run("Found", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "name", store.FileTypeRegular)

		got, err := s.Lookup(s.Root(), "name")
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	test.Run("ByteExactNames", func(t *testing.T) {
		s := suite.NewStore(t)
		mustCreateLinked(t, s, s.Root(), "Name", store.FileTypeRegular)

		_, err := s.Lookup(s.Root(), "name")
		AssertErrorCode(t, store.ErrEntryNotFound, err)
	})

	test.Run("NotADirectory", func(t *testing.T) {
		s := suite.NewStore(t)
		file := mustCreateLinked(t, s, s.Root(), "file", store.FileTypeRegular)

		_, err := s.Lookup(file, "x")
		AssertErrorCode(t, store.ErrNotADirectory, err)
	})

	test.Run("NamesContainingSeparatorBytes", func(t *testing.T) {
		s := suite.NewStore(t)
		a := mustCreateLinked(t, s, s.Root(), "a", store.FileTypeDirectory)
		ab := mustCreateLinked(t, s, s.Root(), "a:b", store.FileTypeRegular)
		b := mustCreateLinked(t, s, a, "b", store.FileTypeRegular)

		got, err := s.Lookup(s.Root(), "a:b")
		require.NoError(t, err)
		assert.Equal(t, ab, got)

		got, err = s.Lookup(a, "b")
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})
}

func (suite *StoreTestSuite) testReadDir(test *testing.T) {
	test.Run("SortedByName", func(t *testing.T) {
		s := suite.NewStore(t)
		for _, name := range []string{"zeta", "alpha", "mid", "Beta"} {
			mustCreateLinked(t, s, s.Root(), name, store.FileTypeRegular)
		}

		entries, err := s.ReadDir(s.Root())
		require.NoError(t, err)

		var names []string
		for _, e := range entries {
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"Beta", "alpha", "mid", "zeta"}, names)
	})

	test.Run("Empty", func(t *testing.T) {
		s := suite.NewStore(t)
		dir := mustCreateLinked(t, s, s.Root(), "dir", store.FileTypeDirectory)

		entries, err := s.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	test.Run("OnlyDirectChildren", func(t *testing.T) {
		s := suite.NewStore(t)
		dir := mustCreateLinked(t, s, s.Root(), "dir", store.FileTypeDirectory)
		mustCreateLinked(t, s, dir, "nested", store.FileTypeRegular)
		mustCreateLinked(t, s, s.Root(), "dir2", store.FileTypeRegular)

		entries, err := s.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "nested", entries[0].Name)
	})

	test.Run("SnapshotIsStable", func(t *testing.T) {
		s := suite.NewStore(t)
		mustCreateLinked(t, s, s.Root(), "a", store.FileTypeRegular)

		entries, err := s.ReadDir(s.Root())
		require.NoError(t, err)
		mustCreateLinked(t, s, s.Root(), "b", store.FileTypeRegular)

		assert.Len(t, entries, 1)
	})

	test.Run("NotADirectory", func(t *testing.T) {
		s := suite.NewStore(t)
		file := mustCreateLinked(t, s, s.Root(), "file", store.FileTypeRegular)

		_, err := s.ReadDir(file)
		AssertErrorCode(t, store.ErrNotADirectory, err)
	})
}
