// Package blob stores file content addressed by (relative path, digest).
//
// The store is partitioned per relative path: two unrelated files that
// happen to share a digest are stored independently, while two snapshots
// of the same path at the same digest share one physical blob.
package blob

import (
	"fmt"
	"io"
	"path/filepath"

	"snaptree/internal/fs"
	"snaptree/internal/store"
)

// Store holds blobs under Dir/<relative path>/<digest>.
type Store struct {
	Dir string
	FS  fs.FS
}

// NewStore creates a blob store rooted at dir.
func NewStore(dir string, fsys fs.FS) *Store {
	return &Store{Dir: dir, FS: fsys}
}

func (s *Store) blobPath(rel, digest string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(rel), digest)
}

// Put stores the content read from r under (rel, digest). Idempotent: an
// existing blob is left untouched, since content addressing guarantees
// byte identity. The write goes through a temp file and a rename so a
// crash never leaves a partial blob under its final name.
func (s *Store) Put(rel, digest string, r io.Reader) error {
	dst := s.blobPath(rel, digest)
	if s.FS.Exists(dst) {
		return nil
	}

	dir := filepath.Dir(dst)
	if err := s.FS.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create blob dir %q: %w", dir, err)
	}

	tmp, tmpPath, err := s.FS.CreateTempFile(dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	defer s.FS.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write blob %s@%s: %w", rel, digest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp blob: %w", err)
	}

	if err := s.FS.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("publish blob %s@%s: %w", rel, digest, err)
	}
	return nil
}

// Get returns the bytes stored under (rel, digest).
func (s *Store) Get(rel, digest string) ([]byte, error) {
	data, err := s.FS.ReadFile(s.blobPath(rel, digest))
	if err != nil {
		if s.FS.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s@%s", store.ErrMissingBlob, rel, digest)
		}
		return nil, fmt.Errorf("read blob %s@%s: %w", rel, digest, err)
	}
	return data, nil
}

// Open returns a reader over the blob under (rel, digest).
func (s *Store) Open(rel, digest string) (io.ReadCloser, error) {
	rc, err := s.FS.Open(s.blobPath(rel, digest))
	if err != nil {
		if s.FS.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s@%s", store.ErrMissingBlob, rel, digest)
		}
		return nil, fmt.Errorf("open blob %s@%s: %w", rel, digest, err)
	}
	return rc, nil
}

// Exists reports whether a blob is stored under (rel, digest).
func (s *Store) Exists(rel, digest string) bool {
	return s.FS.Exists(s.blobPath(rel, digest))
}
