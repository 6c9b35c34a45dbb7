package testing

import (
	"testing"
	"time"

	"github.com/marmos91/inodefs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunInodeTests executes inode lifecycle tests.
func (suite *StoreTestSuite) RunInodeTests(t *testing.T) {
	t.Run("Root", suite.testRoot)
	t.Run("CreateInode", suite.testCreateInode)
	t.Run("UpdateInode", suite.testUpdateInode)
	t.Run("DeleteInode", suite.testDeleteInode)
}

func (suite *StoreTestSuite) testRoot(test *testing.T) {
	test.Run("RootIsDirectoryWithOneLink", func(t *testing.T) {
		s := suite.NewStore(t)

		root, err := s.GetInode(s.Root())
		require.NoError(t, err)
		assert.True(t, root.IsDir())
		assert.Equal(t, uint32(1), root.Nlink)
	})

	test.Run("RootCannotBeDeleted", func(t *testing.T) {
		s := suite.NewStore(t)
		AssertErrorCode(t, store.ErrInodeInUse, s.DeleteInode(s.Root()))
	})

	test.Run("RootCannotBeLinked", func(t *testing.T) {
		s := suite.NewStore(t)
		dir := mustCreateLinked(t, s, s.Root(), "dir", store.FileTypeDirectory)
		AssertErrorCode(t, store.ErrIsADirectory, s.Link(dir, "root", s.Root()))
	})
}

func (suite *StoreTestSuite) testCreateInode(test *testing.T) {
	test.Run("NewInodeHasNoLinks", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreate(t, s, store.FileTypeRegular, "")

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, id, ino.ID)
		assert.Equal(t, store.FileTypeRegular, ino.Type)
		assert.Equal(t, uint32(0), ino.Nlink)
		assert.Equal(t, uint64(0), ino.Size)
		assert.Equal(t, store.DefaultFileMode, ino.Mode)
	})

	test.Run("IDsAreUnique", func(t *testing.T) {
		s := suite.NewStore(t)
		seen := map[store.InodeID]bool{s.Root(): true}
		for i := 0; i < 50; i++ {
			id := mustCreate(t, s, store.FileTypeRegular, "")
			assert.False(t, seen[id], "id %d reused", id)
			seen[id] = true
		}
	})

	test.Run("IDsNotReusedAfterDelete", func(t *testing.T) {
		s := suite.NewStore(t)
		first := mustCreate(t, s, store.FileTypeRegular, "")
		require.NoError(t, s.DeleteInode(first))

		second := mustCreate(t, s, store.FileTypeRegular, "")
		assert.NotEqual(t, first, second)
	})

	test.Run("SymlinkKeepsTarget", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreate(t, s, store.FileTypeSymlink, "../some/where")

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.True(t, ino.IsSymlink())
		assert.Equal(t, "../some/where", ino.Target)
		assert.Equal(t, uint64(len("../some/where")), ino.Size)
	})

	test.Run("ModeIsMasked", func(t *testing.T) {
		s := suite.NewStore(t)
		id, err := s.CreateInode(store.FileTypeDirectory, 0o170700, "")
		require.NoError(t, err)

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, uint32(0o700), ino.Mode)
	})

	test.Run("InvalidType", func(t *testing.T) {
		s := suite.NewStore(t)
		_, err := s.CreateInode(store.FileType(99), 0, "")
		AssertErrorCode(t, store.ErrInvalidArgument, err)
	})

	test.Run("TargetOnNonSymlink", func(t *testing.T) {
		s := suite.NewStore(t)
		_, err := s.CreateInode(store.FileTypeRegular, 0, "target")
		AssertErrorCode(t, store.ErrInvalidArgument, err)
	})

	test.Run("GetMissing", func(t *testing.T) {
		s := suite.NewStore(t)
		_, err := s.GetInode(store.InodeID(987654))
		AssertErrorCode(t, store.ErrNotFound, err)
	})

	test.Run("ReturnedInodeIsACopy", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreate(t, s, store.FileTypeRegular, "")

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		ino.Size = 1234
		ino.Nlink = 9

		again, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), again.Size)
		assert.Equal(t, uint32(0), again.Nlink)
	})
}

func (suite *StoreTestSuite) testUpdateInode(test *testing.T) {
	test.Run("ModeAndTimes", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreate(t, s, store.FileTypeRegular, "")

		mode := uint32(0o600)
		atime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
		mtime := time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC)
		require.NoError(t, s.UpdateInode(id, &store.SetAttrs{Mode: &mode, Atime: &atime, Mtime: &mtime}))

		ino, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, mode, ino.Mode)
		assert.True(t, atime.Equal(ino.Atime))
		assert.True(t, mtime.Equal(ino.Mtime))
	})

	test.Run("NilFieldsUntouched", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreate(t, s, store.FileTypeRegular, "")
		before, err := s.GetInode(id)
		require.NoError(t, err)

		require.NoError(t, s.UpdateInode(id, &store.SetAttrs{}))

		after, err := s.GetInode(id)
		require.NoError(t, err)
		assert.Equal(t, before.Mode, after.Mode)
		assert.True(t, before.Mtime.Equal(after.Mtime))
	})

	test.Run("Missing", func(t *testing.T) {
		s := suite.NewStore(t)
		mode := uint32(0o600)
		AssertErrorCode(t, store.ErrNotFound, s.UpdateInode(store.InodeID(987654), &store.SetAttrs{Mode: &mode}))
	})
}

func (suite *StoreTestSuite) testDeleteInode(test *testing.T) {
	test.Run("DeleteUnlinked", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreate(t, s, store.FileTypeRegular, "")
		require.NoError(t, s.DeleteInode(id))

		_, err := s.GetInode(id)
		AssertErrorCode(t, store.ErrNotFound, err)
	})

	test.Run("DeleteLinkedFails", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "file", store.FileTypeRegular)
		AssertErrorCode(t, store.ErrInodeInUse, s.DeleteInode(id))
	})

	test.Run("DeleteMissing", func(t *testing.T) {
		s := suite.NewStore(t)
		AssertErrorCode(t, store.ErrNotFound, s.DeleteInode(store.InodeID(987654)))
	})

	test.Run("DeleteReleasesContent", func(t *testing.T) {
		s := suite.NewStore(t)
		id := mustCreateLinked(t, s, s.Root(), "file", store.FileTypeRegular)
		mustWrite(t, s, id, []byte("payload"), 0)

		_, err := s.Unlink(s.Root(), "file")
		require.NoError(t, err)
		require.NoError(t, s.DeleteInode(id))

		_, err = s.ReadAt(id, make([]byte, 7), 0)
		AssertErrorCode(t, store.ErrNotFound, err)
	})
}
