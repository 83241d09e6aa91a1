package snapshot_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaptree/internal/config"
	"snaptree/internal/fs"
	"snaptree/internal/hash"
	"snaptree/internal/store"
	"snaptree/internal/store/snapshot"
)

func newTestStore(t *testing.T) (*snapshot.Store, string) {
	t.Helper()
	root := t.TempDir()
	s := snapshot.NewStore(config.Default(root), fs.NewOSFS())
	require.NoError(t, s.Initialize())
	return s, root
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestRequiresInitialization(t *testing.T) {
	root := t.TempDir()
	s := snapshot.NewStore(config.Default(root), fs.NewOSFS())

	_, err := s.CurrentFingerprint()
	assert.True(t, errors.Is(err, store.ErrNotInitialized))

	_, err = s.Commit("")
	assert.True(t, errors.Is(err, store.ErrNotInitialized))

	_, err = s.HasUnstagedChanges()
	assert.True(t, errors.Is(err, store.ErrNotInitialized))

	err = s.Checkout("deadbeef")
	assert.True(t, errors.Is(err, store.ErrNotInitialized))

	require.NoError(t, s.Initialize())
	require.NoError(t, s.Initialize()) // idempotent
	assert.True(t, s.Initialized())
}

func TestFingerprintIndependentOfLocation(t *testing.T) {
	s1, root1 := newTestStore(t)
	s2, root2 := newTestStore(t)

	for _, root := range []string{root1, root2} {
		write(t, root, "a.txt", "x")
		write(t, root, "sub/b.txt", "y")
	}

	fp1, err := s1.CurrentFingerprint()
	require.NoError(t, err)
	fp2, err := s2.CurrentFingerprint()
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
}

func TestFingerprintChangeSensitivity(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")
	write(t, root, "b.txt", "y")

	base, err := s.CurrentFingerprint()
	require.NoError(t, err)

	// Content change.
	write(t, root, "a.txt", "z")
	changed, err := s.CurrentFingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)

	// Revert restores the original fingerprint.
	write(t, root, "a.txt", "x")
	reverted, err := s.CurrentFingerprint()
	require.NoError(t, err)
	assert.Equal(t, base, reverted)

	// Membership change.
	write(t, root, "c.txt", "new")
	grown, err := s.CurrentFingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, base, grown)
}

func TestCommitIdempotence(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")

	fp1, err := s.Commit("")
	require.NoError(t, err)
	fp2, err := s.Commit("")
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	refs, err := s.List()
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestCommitLookupMode(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")

	fp, err := s.Commit("")
	require.NoError(t, err)

	got, err := s.Commit(fp)
	require.NoError(t, err)
	assert.Equal(t, fp, got)

	_, err = s.Commit("deadbeef")
	assert.True(t, errors.Is(err, store.ErrCommitNotFound))
}

func TestUnstagedDetection(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")

	dirty, err := s.HasUnstagedChanges()
	require.NoError(t, err)
	assert.True(t, dirty, "no commits yet")

	_, err = s.Commit("")
	require.NoError(t, err)

	dirty, err = s.HasUnstagedChanges()
	require.NoError(t, err)
	assert.False(t, dirty, "immediately after commit")

	write(t, root, "a.txt", "edited")
	dirty, err = s.HasUnstagedChanges()
	require.NoError(t, err)
	assert.True(t, dirty, "after edit")

	write(t, root, "a.txt", "x")
	dirty, err = s.HasUnstagedChanges()
	require.NoError(t, err)
	assert.False(t, dirty, "after revert")
}

func TestEmptyTreeBootstrap(t *testing.T) {
	s, _ := newTestStore(t)

	dirty, err := s.HasUnstagedChanges()
	require.NoError(t, err)
	assert.True(t, dirty, "empty tree with zero snapshots")

	fp, err := s.Commit("")
	require.NoError(t, err)
	assert.Equal(t, hash.TreeDigest(nil), fp)

	dirty, err = s.HasUnstagedChanges()
	require.NoError(t, err)
	assert.False(t, dirty, "after committing the empty tree")
}

func TestCheckoutRoundTrip(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")
	write(t, root, "sub/b.txt", "y")
	write(t, root, config.DefaultIgnoreFile, "*.secret\n")
	write(t, root, "keys.secret", "untouched")

	fp1, err := s.Commit("")
	require.NoError(t, err)

	// Mutate arbitrarily: edit, delete, add.
	write(t, root, "a.txt", "z")
	require.NoError(t, os.Remove(filepath.Join(root, "sub", "b.txt")))
	write(t, root, "c.txt", "new")
	_, err = s.Commit("")
	require.NoError(t, err)

	require.NoError(t, s.Checkout(fp1))

	assert.Equal(t, "x", read(t, root, "a.txt"))
	assert.Equal(t, "y", read(t, root, "sub/b.txt"))
	_, err = os.Stat(filepath.Join(root, "c.txt"))
	assert.True(t, os.IsNotExist(err), "file absent from the snapshot is removed")

	// Ignored files are left alone.
	assert.Equal(t, "untouched", read(t, root, "keys.secret"))

	fp, err := s.CurrentFingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp)
}

func TestCheckoutGuard(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")

	fp, err := s.Commit("")
	require.NoError(t, err)

	write(t, root, "a.txt", "dirty")
	err = s.Checkout(fp)
	assert.True(t, errors.Is(err, store.ErrUnstagedChanges))

	// Committing the edit clears the guard.
	_, err = s.Commit("")
	require.NoError(t, err)
	require.NoError(t, s.Checkout(fp))
	assert.Equal(t, "x", read(t, root, "a.txt"))
}

func TestCheckoutUnknownRef(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.Checkout("deadbeef")
	assert.True(t, errors.Is(err, store.ErrCommitNotFound))
}

func TestCheckoutNoop(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")

	fp, err := s.Commit("")
	require.NoError(t, err)
	require.NoError(t, s.Checkout(fp))
	assert.Equal(t, "x", read(t, root, "a.txt"))
}

func TestCheckoutMissingBlobIsFatal(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")
	fp1, err := s.Commit("")
	require.NoError(t, err)

	write(t, root, "a.txt", "z")
	_, err = s.Commit("")
	require.NoError(t, err)

	// Corrupt the store: drop the blob holding a.txt's first version.
	entries, err := s.Manifests.Load(fp1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	blobPath := filepath.Join(s.Config().CodeDir(), "a.txt", entries[0].Digest)
	require.NoError(t, os.Remove(blobPath))

	err = s.Checkout(fp1)
	assert.True(t, errors.Is(err, store.ErrMissingBlob))
	assert.True(t, errors.Is(err, store.ErrIO))
}

func TestDeleteKeepsBlobs(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")
	fp, err := s.Commit("")
	require.NoError(t, err)

	require.NoError(t, s.Delete(fp))
	ok, err := s.Exists(fp)
	require.NoError(t, err)
	assert.False(t, ok)

	// Blobs are not garbage-collected.
	d, err := hash.SumBytes(s.Config().Algo, []byte("x"))
	require.NoError(t, err)
	assert.True(t, s.Blobs.Exists("a.txt", d))

	err = s.Delete(fp)
	assert.True(t, errors.Is(err, store.ErrCommitNotFound))
}

func TestLatestByRecency(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")
	fp1, err := s.Commit("")
	require.NoError(t, err)

	write(t, root, "a.txt", "y")
	fp2, err := s.Commit("")
	require.NoError(t, err)

	// Backdate the first manifest so recency is unambiguous.
	old := time.Now().Add(-time.Hour)
	first := filepath.Join(s.Config().CodeDir(), fp1)
	require.NoError(t, os.Chtimes(first, old, old))

	got, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, fp2, got)
}

func TestEndToEndScenario(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")
	write(t, root, "b.txt", "y")
	write(t, root, config.DefaultIgnoreFile, "")

	d1, err := s.Commit("")
	require.NoError(t, err)

	entries, err := s.Manifests.Load(d1)
	require.NoError(t, err)
	require.Len(t, entries, 3) // ignore file itself is tracked

	hx, err := hash.SumBytes(s.Config().Algo, []byte("x"))
	require.NoError(t, err)
	hy, err := hash.SumBytes(s.Config().Algo, []byte("y"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", entries[1].Path)
	assert.Equal(t, hx, entries[1].Digest)
	assert.Equal(t, "b.txt", entries[2].Path)
	assert.Equal(t, hy, entries[2].Digest)

	write(t, root, "a.txt", "z")
	dirty, err := s.HasUnstagedChanges()
	require.NoError(t, err)
	assert.True(t, dirty)

	d2, err := s.Commit("")
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	require.NoError(t, s.Checkout(d1))
	assert.Equal(t, "x", read(t, root, "a.txt"))
	assert.Equal(t, "y", read(t, root, "b.txt"))
}

func TestNoStagingLeftovers(t *testing.T) {
	s, root := newTestStore(t)
	write(t, root, "a.txt", "x")

	_, err := s.CurrentFingerprint()
	require.NoError(t, err)
	_, err = s.Commit("")
	require.NoError(t, err)
	fp, err := s.CurrentFingerprint()
	require.NoError(t, err)
	require.NoError(t, s.Checkout(fp))

	dirents, err := os.ReadDir(s.Config().CodeDir())
	require.NoError(t, err)
	for _, de := range dirents {
		assert.False(t, strings.HasPrefix(de.Name(), "staging-"),
			"staging dir %s left behind", de.Name())
	}
}
