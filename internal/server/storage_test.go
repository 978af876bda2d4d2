package server

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage_WriteThenOpenRoundTrips(t *testing.T) {
	t.Parallel()

	s := NewStorage(t.TempDir())

	require.NoError(t, s.Write("dir/file.txt", bytes.NewReader([]byte("hello"))))

	f, err := s.Open("dir/file.txt")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestStorage_OpenMissingReturnsNotExist(t *testing.T) {
	t.Parallel()

	s := NewStorage(t.TempDir())

	_, err := s.Open("nope.txt")
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func TestStorage_RemoveFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewStorage(root)
	require.NoError(t, s.Write("a.txt", bytes.NewReader([]byte("x"))))

	require.NoError(t, s.Remove("a.txt"))

	_, err := os.Stat(filepath.Join(root, "a.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestStorage_RemoveDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewStorage(root)
	require.NoError(t, s.Write("dir/a.txt", bytes.NewReader([]byte("x"))))

	require.NoError(t, s.Remove("dir"))

	_, err := os.Stat(filepath.Join(root, "dir"))
	require.True(t, os.IsNotExist(err))
}

func TestStorage_RemoveMissingReturnsNotExist(t *testing.T) {
	t.Parallel()

	s := NewStorage(t.TempDir())

	err := s.Remove("missing.txt")
	require.True(t, os.IsNotExist(err))
}

func TestStorage_Rename(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewStorage(root)
	require.NoError(t, s.Write("old.txt", bytes.NewReader([]byte("x"))))

	require.NoError(t, s.Rename("old.txt", "new.txt"))

	_, err := os.Stat(filepath.Join(root, "old.txt"))
	require.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(root, "new.txt"))
	require.NoError(t, err)
}

func TestStorage_OpenResolvesRenameJoinedPathToExistingHalf(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewStorage(root)
	require.NoError(t, s.Write("new.txt", bytes.NewReader([]byte("content"))))

	// A caller that still addresses the file by its pre-rename joined
	// path ("old$-$new") should resolve to whichever half exists.
	f, err := s.Open("old.txt$-$new.txt")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "content", string(data))
}

func TestStorage_WriteLeavesNoTempFileBehind(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewStorage(root)
	require.NoError(t, s.Write("dir/file.txt", bytes.NewReader([]byte("hello"))))

	entries, err := os.ReadDir(filepath.Join(root, "dir"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "file.txt", entries[0].Name())
}

func TestStorage_WriteReplacesExistingContentWholesale(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewStorage(root)
	require.NoError(t, s.Write("a.txt", bytes.NewReader([]byte("first version, much longer"))))
	require.NoError(t, s.Write("a.txt", bytes.NewReader([]byte("second"))))

	f, err := s.Open("a.txt")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))
}

func TestStorage_RejectsPathEscape(t *testing.T) {
	t.Parallel()

	s := NewStorage(t.TempDir())

	_, err := s.Open("../escape.txt")
	require.Error(t, err)
}
