package memory

import (
	"testing"

	"github.com/marmos91/inodefs/pkg/store"
	contentmemory "github.com/marmos91/inodefs/pkg/store/content/memory"
	storetesting "github.com/marmos91/inodefs/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	suite := &storetesting.StoreTestSuite{
		NewStore: func(t *testing.T) store.Storage {
			return NewMemoryStoreWithDefaults()
		},
	}
	suite.Run(t)
}

func TestMemoryStore_DeleteReleasesBlob(t *testing.T) {
	cs := contentmemory.NewMemoryContentStore()
	s := NewMemoryStore(MemoryStoreConfig{Content: cs})

	id, err := s.CreateInode(store.FileTypeRegular, 0, "")
	require.NoError(t, err)
	_, err = s.WriteAt(id, []byte("data"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Count())

	require.NoError(t, s.DeleteInode(id))
	assert.Equal(t, 0, cs.Count())
	assert.Equal(t, 1, s.Count())
}

func TestMemoryStore_EmptyWriteDoesNotExtend(t *testing.T) {
	s := NewMemoryStoreWithDefaults()
	id, err := s.CreateInode(store.FileTypeRegular, 0, "")
	require.NoError(t, err)

	n, err := s.WriteAt(id, nil, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ino, err := s.GetInode(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ino.Size)
}

func TestMemoryStore_Close(t *testing.T) {
	s := NewMemoryStoreWithDefaults()
	require.NoError(t, s.Close())

	_, err := s.CreateInode(store.FileTypeRegular, 0, "")
	assert.True(t, store.IsCode(err, store.ErrStorageFailure))
	assert.Error(t, s.Sync())
}
