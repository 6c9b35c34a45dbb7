package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/inodefs/pkg/semantics"
	"github.com/marmos91/inodefs/pkg/store"
	storebadger "github.com/marmos91/inodefs/pkg/store/badger"
	"github.com/marmos91/inodefs/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEngine = Engine[*memory.MemoryStore, semantics.Posix]

func newEngine(t *testing.T) *testEngine {
	t.Helper()
	return New(memory.NewMemoryStoreWithDefaults(), semantics.NewPosix(semantics.Options{}))
}

func newEngineWith(t *testing.T, opts semantics.Options) *testEngine {
	t.Helper()
	return New(memory.NewMemoryStoreWithDefaults(), semantics.NewPosix(opts))
}

func assertCode(t *testing.T, code store.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	got, ok := store.CodeOf(err)
	require.True(t, ok, "error %v carries no code", err)
	assert.Equal(t, code, got, "unexpected code for %v", err)
}

func mustWriteFile(t *testing.T, e *testEngine, path, data string) {
	t.Helper()
	require.NoError(t, e.WriteFile(path, []byte(data), 0))
}

func mustRead(t *testing.T, e *testEngine, path string) string {
	t.Helper()
	data, err := e.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

// ============================================================================
// Read / write
// ============================================================================

func TestWriteReadRoundtrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("hi"),
		{0, 1, 2, 0, 255},
		[]byte(strings.Repeat("abcdefgh", 10000)),
	}

	for i, data := range payloads {
		t.Run(fmt.Sprintf("payload-%d", i), func(t *testing.T) {
			e := newEngine(t)
			require.NoError(t, e.MkdirAll("/deep/er", 0))
			path := "/deep/er/file.bin"

			require.NoError(t, e.WriteFile(path, data, 0))
			got, err := e.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestWriteFile_ReplacesContent(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "a much longer first version")
	mustWriteFile(t, e, "/f", "short")

	assert.Equal(t, "short", mustRead(t, e, "/f"))
}

func TestWriteFile_Mode(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.WriteFile("/f", []byte("x"), 0o600))

	ino, err := e.Stat("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o600), ino.Mode)
	assert.Equal(t, uint32(1), ino.Nlink)
}

func TestWriteAtAndReadAt(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "hello")

	n, err := e.WriteAt("/f", []byte("!!"), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "hello\x00\x00!!", mustRead(t, e, "/f"))

	buf := make([]byte, 4)
	n, err = e.ReadAt("/f", buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "lo\x00\x00", string(buf[:n]))

	n, err = e.ReadAt("/f", buf, 7)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "!!", string(buf[:n]))

	_, err = e.WriteAt("/missing", []byte("x"), 0)
	assertCode(t, store.ErrNotFound, err)
}

func TestAppend(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Append("/log", []byte("one,"), 0))
	require.NoError(t, e.Append("/log", []byte("two"), 0))

	assert.Equal(t, "one,two", mustRead(t, e, "/log"))
}

func TestTruncate(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "abcdef")

	require.NoError(t, e.Truncate("/f", 2))
	assert.Equal(t, "ab", mustRead(t, e, "/f"))

	require.NoError(t, e.Truncate("/f", 4))
	assert.Equal(t, "ab\x00\x00", mustRead(t, e, "/f"))

	require.NoError(t, e.Mkdir("/d", 0))
	assertCode(t, store.ErrIsADirectory, e.Truncate("/d", 0))
}

func TestWriteAt_OffsetOutOfRange(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "abc")

	_, err := e.WriteAt("/f", []byte("x"), math.MaxInt64)
	assertCode(t, store.ErrInvalidArgument, err)
	assert.ErrorIs(t, err, fs.ErrInvalid)

	assertCode(t, store.ErrInvalidArgument, e.Truncate("/f", 1<<63))

	ino, err := e.Stat("/f")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), ino.Size)
	assert.Equal(t, "abc", mustRead(t, e, "/f"))
}

func TestReadFile_Errors(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/dir", 0))
	mustWriteFile(t, e, "/file", "x")

	_, err := e.ReadFile("/dir")
	assertCode(t, store.ErrIsADirectory, err)

	_, err = e.ReadFile("/nope")
	assertCode(t, store.ErrNotFound, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = e.ReadFile("/file/child")
	assertCode(t, store.ErrNotADirectory, err)
}

func TestCreateFile(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.CreateFile("/new", 0o640))

	ino, err := e.Stat("/new")
	require.NoError(t, err)
	assert.True(t, ino.IsRegular())
	assert.Equal(t, uint64(0), ino.Size)

	assertCode(t, store.ErrAlreadyExists, e.CreateFile("/new", 0))
	assertCode(t, store.ErrNotFound, e.CreateFile("/missing/new", 0))
	assertCode(t, store.ErrInvalidName, e.CreateFile("/bad\x00name", 0))
}

// ============================================================================
// Directories
// ============================================================================

func TestMkdirAll_ScenarioSingleEntry(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/x/y/z", 0))

	ino, err := e.Stat("/x/y")
	require.NoError(t, err)
	assert.True(t, ino.IsDir())

	entries, err := e.ReadDir("/x/y")
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, names(entries))
	assert.True(t, entries[0].Inode.IsDir())
}

func TestMkdirAll(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/a/b", 0))
	require.NoError(t, e.MkdirAll("/a/b/c", 0), "existing prefix is fine")
	require.NoError(t, e.MkdirAll("/a/b/c", 0), "fully existing path is fine")
	require.NoError(t, e.MkdirAll("/", 0))

	mustWriteFile(t, e, "/a/file", "x")
	assertCode(t, store.ErrNotADirectory, e.MkdirAll("/a/file/sub", 0))

	require.NoError(t, e.Symlink("/a/b", "/lnk"))
	require.NoError(t, e.MkdirAll("/lnk/through", 0))
	ok, err := e.Exists("/a/b/through")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMkdir(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/d", 0o700))

	ino, err := e.Stat("/d")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o700), ino.Mode)

	assertCode(t, store.ErrAlreadyExists, e.Mkdir("/d", 0))
	assertCode(t, store.ErrAlreadyExists, e.Mkdir("/", 0))
	assertCode(t, store.ErrNotFound, e.Mkdir("/x/y", 0))
}

func TestReadDir(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/d", 0))
	for _, n := range []string{"c", "a", "b"} {
		mustWriteFile(t, e, "/d/"+n, n)
	}

	entries, err := e.ReadDir("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(entries))

	mustWriteFile(t, e, "/file", "")
	_, err = e.ReadDir("/file")
	assertCode(t, store.ErrNotADirectory, err)
}

func TestRemoveDir_NonEmpty(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/d/sub", 0))
	mustWriteFile(t, e, "/d/file", "keep")

	err := e.RemoveDir("/d")
	assertCode(t, store.ErrDirectoryNotEmpty, err)

	entries, err := e.ReadDir("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"file", "sub"}, names(entries))
	assert.Equal(t, "keep", mustRead(t, e, "/d/file"))
}

func TestRemoveDir(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/d", 0))
	require.NoError(t, e.RemoveDir("/d"))

	ok, err := e.Exists("/d")
	require.NoError(t, err)
	assert.False(t, ok)

	mustWriteFile(t, e, "/f", "")
	assertCode(t, store.ErrNotADirectory, e.RemoveDir("/f"))
	assertCode(t, store.ErrInvalidPath, e.RemoveDir("/"))
}

func TestRemoveFile(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/d", 0))
	assertCode(t, store.ErrIsADirectory, e.RemoveFile("/d"))
	assertCode(t, store.ErrNotFound, e.RemoveFile("/missing"))

	mustWriteFile(t, e, "/f", "x")
	require.NoError(t, e.Symlink("/f", "/lnk"))
	require.NoError(t, e.RemoveFile("/lnk"))

	assert.Equal(t, "x", mustRead(t, e, "/f"), "removing a symlink leaves its target")
}

func TestRemoveAll(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/t/a/b/c", 0))
	mustWriteFile(t, e, "/t/a/f1", "1")
	mustWriteFile(t, e, "/t/a/b/f2", "2")
	require.NoError(t, e.HardLink("/t/a/f1", "/outside"))
	require.NoError(t, e.Symlink("/t/a", "/t/lnk"))

	before := e.Storage().Count()
	require.NoError(t, e.RemoveAll("/t"))

	ok, err := e.Exists("/t")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "1", mustRead(t, e, "/outside"))

	// t, a, b, c, f2, lnk are gone; f1 survives through /outside
	assert.Equal(t, before-6, e.Storage().Count())

	require.NoError(t, e.RemoveAll("/never-existed"))
}

func TestRemoveAll_Root(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/a/b", 0))
	mustWriteFile(t, e, "/f", "x")

	require.NoError(t, e.RemoveAll("/"))

	entries, err := e.ReadDir("/")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, e.Storage().Count())
}

// ============================================================================
// Rename
// ============================================================================

func TestRename_ScenarioIntoOwnSubtree(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/a", 0))
	require.NoError(t, e.Mkdir("/a/b", 0))

	err := e.Rename("/a", "/a/b/a")
	assertCode(t, store.ErrWouldCreateCycle, err)

	var pe *PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "rename", pe.Op)
	assert.Equal(t, "/a", pe.Path)
	assert.Equal(t, "/a/b/a", pe.NewPath)

	ok, err := e.Exists("/a/b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRename_CycleAtAnyDepth(t *testing.T) {
	for depth := 0; depth <= 8; depth++ {
		t.Run(fmt.Sprintf("depth-%d", depth), func(t *testing.T) {
			e := newEngine(t)
			path := "/top"
			require.NoError(t, e.Mkdir(path, 0))
			for i := 0; i < depth; i++ {
				path = fmt.Sprintf("%s/d%d", path, i)
				require.NoError(t, e.Mkdir(path, 0))
			}

			assertCode(t, store.ErrWouldCreateCycle, e.Rename("/top", path+"/moved"))
		})
	}
}

func TestRename_CycleThroughSymlink(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/a/b", 0))
	require.NoError(t, e.Symlink("/a/b", "/shortcut"))

	assertCode(t, store.ErrWouldCreateCycle, e.Rename("/a", "/shortcut/a"))
	assertCode(t, store.ErrWouldCreateCycle, e.Rename("/a", "/a/inside"))
}

func TestRename_MovesSubtreePreservingIdentity(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/src/sub", 0))
	mustWriteFile(t, e, "/src/sub/f", "data")
	require.NoError(t, e.Mkdir("/dst", 0))

	before, err := e.Stat("/src")
	require.NoError(t, err)

	require.NoError(t, e.Rename("/src", "/dst/moved"))

	after, err := e.Stat("/dst/moved")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, uint32(1), after.Nlink)
	assert.Equal(t, "data", mustRead(t, e, "/dst/moved/sub/f"))

	_, err = e.Stat("/src")
	assertCode(t, store.ErrNotFound, err)
}

func TestRename_Overwrite(t *testing.T) {
	t.Run("FileOverFile", func(t *testing.T) {
		e := newEngine(t)
		mustWriteFile(t, e, "/a", "new")
		mustWriteFile(t, e, "/b", "old")
		before := e.Storage().Count()

		require.NoError(t, e.Rename("/a", "/b"))
		assert.Equal(t, "new", mustRead(t, e, "/b"))
		assert.Equal(t, before-1, e.Storage().Count(), "replaced inode is reclaimed")
	})

	t.Run("EmptyDirOverEmptyDir", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.Mkdir("/a", 0))
		require.NoError(t, e.Mkdir("/b", 0))
		require.NoError(t, e.Rename("/a", "/b"))

		ok, err := e.Exists("/a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DirOverNonEmptyDir", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.Mkdir("/a", 0))
		require.NoError(t, e.MkdirAll("/b/c", 0))

		assertCode(t, store.ErrDirectoryNotEmpty, e.Rename("/a", "/b"))
		ok, err := e.Exists("/a")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = e.Exists("/b/c")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("NonEmptyDirOverEmptyDir", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.MkdirAll("/a/x/z", 0))
		mustWriteFile(t, e, "/a/x/z/f", "payload")
		require.NoError(t, e.Mkdir("/b", 0))
		moved, err := e.Stat("/a/x/z")
		require.NoError(t, err)
		before := e.Storage().Count()

		require.NoError(t, e.Rename("/a/x/z", "/b"))

		got, err := e.Stat("/b")
		require.NoError(t, err)
		assert.Equal(t, moved.ID, got.ID)
		assert.Equal(t, "payload", mustRead(t, e, "/b/f"))
		ok, err := e.Exists("/a/x/z")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before-1, e.Storage().Count(), "replaced directory is reclaimed")
	})

	t.Run("FailedOverwriteLeavesBothSides", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.MkdirAll("/src/sub", 0))
		mustWriteFile(t, e, "/src/sub/f", "src")
		require.NoError(t, e.MkdirAll("/dst/keep", 0))
		mustWriteFile(t, e, "/file", "file")
		before := e.Storage().Count()

		assertCode(t, store.ErrDirectoryNotEmpty, e.Rename("/src", "/dst"))
		assertCode(t, store.ErrAlreadyExists, e.Rename("/src", "/file"))

		assert.Equal(t, "src", mustRead(t, e, "/src/sub/f"))
		assert.Equal(t, "file", mustRead(t, e, "/file"))
		ok, err := e.Exists("/dst/keep")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, before, e.Storage().Count())
	})

	t.Run("CrossType", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.Mkdir("/dir", 0))
		mustWriteFile(t, e, "/file", "x")

		assertCode(t, store.ErrAlreadyExists, e.Rename("/dir", "/file"))
		assertCode(t, store.ErrAlreadyExists, e.Rename("/file", "/dir"))
		assert.Equal(t, "x", mustRead(t, e, "/file"))
	})

	t.Run("HardLinkOverwrittenKeepsOtherLinks", func(t *testing.T) {
		e := newEngine(t)
		mustWriteFile(t, e, "/target", "shared")
		require.NoError(t, e.HardLink("/target", "/alias"))
		mustWriteFile(t, e, "/src", "src")

		require.NoError(t, e.Rename("/src", "/target"))
		assert.Equal(t, "src", mustRead(t, e, "/target"))
		assert.Equal(t, "shared", mustRead(t, e, "/alias"))
	})
}

func TestRename_OntoItself(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "x")
	require.NoError(t, e.HardLink("/f", "/g"))

	require.NoError(t, e.Rename("/f", "/f"))
	require.NoError(t, e.Rename("/f", "/g"))

	assert.Equal(t, "x", mustRead(t, e, "/f"))
	assert.Equal(t, "x", mustRead(t, e, "/g"))
}

func TestRename_Errors(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "x")

	assertCode(t, store.ErrInvalidPath, e.Rename("/", "/x"))
	assertCode(t, store.ErrNotFound, e.Rename("/missing", "/x"))
	assertCode(t, store.ErrNotFound, e.Rename("/f", "/missing/x"))
	assertCode(t, store.ErrNotADirectory, e.Rename("/f", "/f/x"))
}

func TestRename_Symlink(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/target", "t")
	require.NoError(t, e.Symlink("/target", "/lnk"))

	require.NoError(t, e.Rename("/lnk", "/renamed"))

	target, err := e.ReadLink("/renamed")
	require.NoError(t, err)
	assert.Equal(t, "/target", target)
	assert.Equal(t, "t", mustRead(t, e, "/target"))
}

// ============================================================================
// Links
// ============================================================================

func TestHardLink_ScenarioSurvivesRemoval(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f.txt", "hi")
	require.NoError(t, e.HardLink("/f.txt", "/g.txt"))
	require.NoError(t, e.RemoveFile("/f.txt"))

	assert.Equal(t, "hi", mustRead(t, e, "/g.txt"))
}

func TestHardLink_NMinusOne(t *testing.T) {
	const n = 5
	e := newEngine(t)
	mustWriteFile(t, e, "/l0", "payload")
	for i := 1; i < n; i++ {
		require.NoError(t, e.HardLink("/l0", fmt.Sprintf("/l%d", i)))
	}

	ino, err := e.Stat("/l3")
	require.NoError(t, err)
	assert.Equal(t, uint32(n), ino.Nlink)
	id := ino.ID

	for i := 0; i < n-1; i++ {
		require.NoError(t, e.RemoveFile(fmt.Sprintf("/l%d", i)))
	}
	assert.Equal(t, "payload", mustRead(t, e, fmt.Sprintf("/l%d", n-1)))

	require.NoError(t, e.RemoveFile(fmt.Sprintf("/l%d", n-1)))
	_, err = e.Storage().GetInode(id)
	assertCode(t, store.ErrNotFound, err)
	_, err = e.Storage().ReadAt(id, make([]byte, 7), 0)
	assertCode(t, store.ErrNotFound, err)
}

func TestHardLink_SharedWrites(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/a", "one")
	require.NoError(t, e.HardLink("/a", "/b"))

	require.NoError(t, e.Append("/b", []byte("+two"), 0))
	assert.Equal(t, "one+two", mustRead(t, e, "/a"))
}

func TestHardLink_Directory(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Mkdir("/d", 0))
	assertCode(t, store.ErrIsADirectory, e.HardLink("/d", "/d2"))

	// Refused even when the policy disables hard links altogether
	f := newEngineWith(t, semantics.Options{DisableHardLinks: true})
	require.NoError(t, f.Mkdir("/d", 0))
	assertCode(t, store.ErrIsADirectory, f.HardLink("/d", "/d2"))

	mustWriteFile(t, f, "/file", "x")
	assertCode(t, store.ErrNotSupported, f.HardLink("/file", "/file2"))
}

func TestHardLink_Errors(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/a", "x")
	mustWriteFile(t, e, "/b", "y")

	assertCode(t, store.ErrAlreadyExists, e.HardLink("/a", "/b"))
	assertCode(t, store.ErrNotFound, e.HardLink("/missing", "/c"))
}

func TestSymlink_ScenarioDangling(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.Symlink("/missing-target", "/link"))

	_, err := e.ReadFile("/link")
	assertCode(t, store.ErrNotFound, err)

	target, err := e.ReadLink("/link")
	require.NoError(t, err)
	assert.Equal(t, "/missing-target", target)

	ino, err := e.Lstat("/link")
	require.NoError(t, err)
	assert.True(t, ino.IsSymlink())

	assertCode(t, store.ErrNotFound, e.WriteFile("/link", []byte("x"), 0))
}

func TestSymlink_Follow(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/data/deep", 0))
	mustWriteFile(t, e, "/data/deep/file", "content")

	require.NoError(t, e.Symlink("/data/deep", "/abs"))
	require.NoError(t, e.Symlink("deep/file", "/data/rel"))
	require.NoError(t, e.Symlink("../deep/file", "/data/deep/up"))

	assert.Equal(t, "content", mustRead(t, e, "/abs/file"))
	assert.Equal(t, "content", mustRead(t, e, "/data/rel"))
	assert.Equal(t, "content", mustRead(t, e, "/data/deep/up"))

	ino, err := e.Stat("/abs")
	require.NoError(t, err)
	assert.True(t, ino.IsDir())

	// Writes go through the link
	mustWriteFile(t, e, "/data/rel", "changed")
	assert.Equal(t, "changed", mustRead(t, e, "/data/deep/file"))
}

func TestSymlink_Chain(t *testing.T) {
	build := func(t *testing.T, e *testEngine, length int) string {
		mustWriteFile(t, e, "/end", "reached")
		prev := "/end"
		for i := 0; i < length; i++ {
			link := fmt.Sprintf("/l%d", i)
			require.NoError(t, e.Symlink(prev, link))
			prev = link
		}
		return prev
	}

	t.Run("ExactlyAtBound", func(t *testing.T) {
		e := newEngine(t)
		head := build(t, e, semantics.DefaultMaxSymlinkDepth)
		assert.Equal(t, "reached", mustRead(t, e, head))
	})

	t.Run("OverBound", func(t *testing.T) {
		e := newEngine(t)
		head := build(t, e, semantics.DefaultMaxSymlinkDepth+1)
		_, err := e.ReadFile(head)
		assertCode(t, store.ErrSymlinkLoop, err)
	})

	t.Run("CustomBound", func(t *testing.T) {
		e := newEngineWith(t, semantics.Options{MaxSymlinkDepth: 3})
		head := build(t, e, 3)
		assert.Equal(t, "reached", mustRead(t, e, head))

		require.NoError(t, e.Symlink(head, "/one-more"))
		_, err := e.ReadFile("/one-more")
		assertCode(t, store.ErrSymlinkLoop, err)
	})

	t.Run("Loop", func(t *testing.T) {
		e := newEngine(t)
		require.NoError(t, e.Symlink("/b", "/a"))
		require.NoError(t, e.Symlink("/a", "/b"))

		_, err := e.Stat("/a")
		assertCode(t, store.ErrSymlinkLoop, err)

		_, err = e.Lstat("/a")
		assert.NoError(t, err)
	})
}

func TestSymlink_Errors(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/exists", "")

	assertCode(t, store.ErrAlreadyExists, e.Symlink("/x", "/exists"))
	assertCode(t, store.ErrInvalidPath, e.Symlink("", "/empty"))

	_, err := e.ReadLink("/exists")
	assertCode(t, store.ErrNotASymlink, err)

	f := newEngineWith(t, semantics.Options{DisableSymlinks: true})
	assertCode(t, store.ErrNotSupported, f.Symlink("/x", "/y"))
}

// ============================================================================
// Dot segments
// ============================================================================

func TestDotSegments_Lexical(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/a/b", 0))
	require.NoError(t, e.MkdirAll("/x/y", 0))
	mustWriteFile(t, e, "/a/marker", "a")
	mustWriteFile(t, e, "/x/marker", "x")
	require.NoError(t, e.Symlink("/x/y", "/a/link"))

	// ".." cancels the previous component before resolution
	assert.Equal(t, "a", mustRead(t, e, "/a/link/../marker"))
	assert.Equal(t, "a", mustRead(t, e, "/a/./b/../marker"))
	assert.Equal(t, "a", mustRead(t, e, "/../../a/marker"))
}

func TestDotSegments_Physical(t *testing.T) {
	e := newEngineWith(t, semantics.Options{DotSegments: semantics.DotPhysical})
	require.NoError(t, e.MkdirAll("/a/b", 0))
	require.NoError(t, e.MkdirAll("/x/y", 0))
	mustWriteFile(t, e, "/a/marker", "a")
	mustWriteFile(t, e, "/x/marker", "x")
	require.NoError(t, e.Symlink("/x/y", "/a/link"))

	// ".." leaves the directory actually reached through the symlink
	assert.Equal(t, "x", mustRead(t, e, "/a/link/../marker"))
	assert.Equal(t, "a", mustRead(t, e, "/a/b/../marker"))

	mustWriteFile(t, e, "/file", "")
	_, err := e.Stat("/file/..")
	assertCode(t, store.ErrNotADirectory, err)
}

// ============================================================================
// Copy, attributes, walk
// ============================================================================

func TestCopy(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.WriteFile("/src", []byte("original"), 0o600))

	require.NoError(t, e.Copy("/src", "/dst"))
	assert.Equal(t, "original", mustRead(t, e, "/dst"))

	ino, err := e.Stat("/dst")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o600), ino.Mode)

	// Independent content
	mustWriteFile(t, e, "/dst", "changed")
	assert.Equal(t, "original", mustRead(t, e, "/src"))

	// Overwrite existing destination
	mustWriteFile(t, e, "/other", "a long previous content")
	require.NoError(t, e.Copy("/src", "/other"))
	assert.Equal(t, "original", mustRead(t, e, "/other"))

	// Copy onto a hard link of itself is a no-op
	require.NoError(t, e.HardLink("/src", "/src2"))
	require.NoError(t, e.Copy("/src", "/src2"))
	assert.Equal(t, "original", mustRead(t, e, "/src"))

	require.NoError(t, e.Mkdir("/dir", 0))
	assertCode(t, store.ErrIsADirectory, e.Copy("/dir", "/x"))
	assertCode(t, store.ErrIsADirectory, e.Copy("/src", "/dir"))
}

func TestSetPermissionsAndTimes(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "x")
	require.NoError(t, e.Symlink("/f", "/lnk"))

	require.NoError(t, e.SetPermissions("/lnk", 0o4751))
	ino, err := e.Stat("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o4751), ino.Mode)

	atime := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	mtime := time.Date(2002, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, e.SetTimes("/f", atime, mtime))

	ino, err = e.Stat("/f")
	require.NoError(t, err)
	assert.True(t, atime.Equal(ino.Atime))
	assert.True(t, mtime.Equal(ino.Mtime))

	require.NoError(t, e.SetTimes("/f", time.Time{}, time.Time{}))
	ino, err = e.Stat("/f")
	require.NoError(t, err)
	assert.True(t, mtime.Equal(ino.Mtime), "zero time leaves the field alone")
}

func TestWalk(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/w/b/c", 0))
	mustWriteFile(t, e, "/w/a", "1")
	mustWriteFile(t, e, "/w/b/f", "2")
	require.NoError(t, e.Symlink("/w", "/w/b/loop"))

	var visited []string
	require.NoError(t, e.Walk("/w", func(path string, entry Entry) error {
		visited = append(visited, fmt.Sprintf("%s@%d", path, entry.Depth))
		return nil
	}))

	assert.Equal(t, []string{
		"/w@1", "/w/a@2", "/w/b@2", "/w/b/c@3", "/w/b/f@3", "/w/b/loop@3",
	}, visited)
}

func TestWalk_SkipDir(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/s/skip/deep", 0))
	require.NoError(t, e.MkdirAll("/s/keep", 0))

	var visited []string
	require.NoError(t, e.Walk("/", func(path string, entry Entry) error {
		visited = append(visited, path)
		if entry.Name == "skip" {
			return fs.SkipDir
		}
		return nil
	}))
	assert.Equal(t, []string{"/", "/s", "/s/keep", "/s/skip"}, visited)

	stop := errors.New("stop")
	err := e.Walk("/", func(string, Entry) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestExists(t *testing.T) {
	e := newEngine(t)
	mustWriteFile(t, e, "/f", "")
	require.NoError(t, e.Symlink("/nowhere", "/dangling"))

	for path, want := range map[string]bool{"/": true, "/f": true, "/g": false, "/f/x": false, "/dangling": false} {
		got, err := e.Exists(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}

func TestLocateAndResolve(t *testing.T) {
	e := newEngine(t)
	require.NoError(t, e.MkdirAll("/a/b", 0))
	mustWriteFile(t, e, "/a/b/f", "x")

	dir, err := e.Resolve("/a/b", true)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.Depth)

	loc, err := e.Locate("/a/b/new")
	require.NoError(t, err)
	assert.Nil(t, loc.Inode)
	assert.Equal(t, dir.Inode.ID, loc.Parent)
	assert.Equal(t, 3, loc.Depth)

	loc, err = e.Locate("/a/b/f")
	require.NoError(t, err)
	require.NotNil(t, loc.Inode)
	assert.True(t, loc.Inode.IsRegular())

	_, err = e.Locate("/")
	assertCode(t, store.ErrInvalidPath, err)
}

func TestInvalidPaths(t *testing.T) {
	e := newEngine(t)

	_, err := e.Stat("relative")
	assertCode(t, store.ErrInvalidPath, err)
	assert.ErrorIs(t, err, fs.ErrInvalid)

	assertCode(t, store.ErrAlreadyExists, e.Mkdir("/a/..", 0)) // lexically the root
	assertCode(t, store.ErrInvalidName, e.Mkdir("/a\x00b", 0))
}

// ============================================================================
// Policies and storages compose
// ============================================================================

func TestPortableSemantics(t *testing.T) {
	e := New(memory.NewMemoryStoreWithDefaults(), semantics.NewPortable(semantics.Options{}))
	require.NoError(t, e.Mkdir("/Docs", 0))

	require.NoError(t, e.WriteFile(`\Docs\ReadMe.TXT`, []byte("x"), 0))
	data, err := e.ReadFile("/docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	assertCode(t, store.ErrAlreadyExists, e.CreateFile("/DOCS/README.txt", 0))
	assertCode(t, store.ErrInvalidName, e.CreateFile("/docs/aux.txt", 0))
	assertCode(t, store.ErrInvalidName, e.Mkdir("/what?", 0))
}

func TestReadOnlySemantics(t *testing.T) {
	s := memory.NewMemoryStoreWithDefaults()
	rw := New(s, semantics.NewPosix(semantics.Options{}))
	require.NoError(t, rw.WriteFile("/f", []byte("x"), 0))

	ro := New(s, semantics.NewReadOnly(semantics.NewPosix(semantics.Options{})))
	data, err := ro.ReadFile("/f")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	assertCode(t, store.ErrPermissionDenied, ro.WriteFile("/f", []byte("y"), 0))
	assertCode(t, store.ErrPermissionDenied, ro.Mkdir("/d", 0))
	assertCode(t, store.ErrPermissionDenied, ro.RemoveFile("/f"))
	assertCode(t, store.ErrPermissionDenied, ro.Rename("/f", "/g"))
	assertCode(t, store.ErrPermissionDenied, ro.SetPermissions("/f", 0o600))
	assert.ErrorIs(t, ro.RemoveAll("/f"), fs.ErrPermission)

	assert.Equal(t, "x", string(mustReadAny(t, rw, "/f")))
}

func mustReadAny[S store.Storage, P semantics.Semantics](t *testing.T, e *Engine[S, P], path string) []byte {
	t.Helper()
	data, err := e.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestBadgerStorage(t *testing.T) {
	s, err := storebadger.NewBadgerStore(context.Background(), storebadger.BadgerStoreConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e := New(s, semantics.NewPosix(semantics.Options{}))
	require.NoError(t, e.MkdirAll("/a/b", 0))
	require.NoError(t, e.WriteFile("/a/b/f.txt", []byte("hi"), 0))
	require.NoError(t, e.HardLink("/a/b/f.txt", "/g.txt"))
	require.NoError(t, e.RemoveFile("/a/b/f.txt"))
	assert.Equal(t, "hi", string(mustReadAny(t, e, "/g.txt")))

	err = e.Rename("/a", "/a/b/a")
	assertCode(t, store.ErrWouldCreateCycle, err)

	require.NoError(t, e.Sync())
}
