package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaptree/internal/fs"
	"snaptree/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), fs.NewOSFS())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	entries := []Entry{
		{Path: "a.txt", Digest: "00ff"},
		{Path: "sub/b.txt", Digest: "ab12"},
		{Path: "weird,name.txt", Digest: "cd34"}, // comma in path
	}

	require.NoError(t, s.Save("deadbeef", entries))

	got, err := s.Load("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestOnDiskFormat(t *testing.T) {
	s := newTestStore(t)
	entries := []Entry{
		{Path: "a.txt", Digest: "00ff"},
		{Path: "b.txt", Digest: "ab12"},
	}
	require.NoError(t, s.Save("deadbeef", entries))

	data, err := os.ReadFile(filepath.Join(s.Dir, "deadbeef"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt,00ff\nb.txt,ab12\n", string(data))
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("deadbeef")
	assert.True(t, errors.Is(err, store.ErrCommitNotFound))
}

func TestLoadMalformed(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "deadbeef"), []byte("no-comma-here\n"), 0o644))

	_, err := s.Load("deadbeef")
	assert.True(t, errors.Is(err, store.ErrMalformedManifest))
}

func TestListSkipsBlobNamespacesAndTempFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("aa11", nil))
	require.NoError(t, s.Save("bb22", []Entry{{Path: "a", Digest: "cc"}}))

	// Blob namespace directory and a stray temp file share the code dir.
	require.NoError(t, os.MkdirAll(filepath.Join(s.Dir, "a.txt"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "tmp-12345"), []byte("x"), 0o644))

	got, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"aa11", "bb22"}, got)
}

func TestListEmptyDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent"), fs.NewOSFS())
	got, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExists(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("aa11", nil))

	assert.True(t, s.Exists("aa11"))
	assert.False(t, s.Exists("bb22"))

	// A blob namespace directory is not a manifest.
	require.NoError(t, os.MkdirAll(filepath.Join(s.Dir, "cc33"), 0o755))
	assert.False(t, s.Exists("cc33"))
}

func TestLatestByModTime(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("aa11", nil))
	require.NoError(t, s.Save("bb22", nil))

	// Backdate aa11 so recency is unambiguous regardless of timer
	// granularity.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(s.Dir, "aa11"), old, old))

	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "bb22", got)
}

func TestLatestEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Save("aa11", nil))
	require.NoError(t, s.Delete("aa11"))
	assert.False(t, s.Exists("aa11"))

	err := s.Delete("aa11")
	assert.True(t, errors.Is(err, store.ErrCommitNotFound))
}
