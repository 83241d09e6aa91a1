package snapshot

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"snaptree/internal/hash"
	"snaptree/internal/store"
)

// stagedFile is one tracked file captured into the staging directory.
type stagedFile struct {
	Path     string // slash-separated, relative to the root
	Digest   string
	copyPath string // absolute path of the staged copy
}

// staging is an isolated snapshot of the tracked tree at one instant.
type staging struct {
	dir         string
	files       []stagedFile
	fingerprint string
}

// stage copies every tracked file into a fresh temp directory under the
// code dir, computing each file digest from the same read pass that
// produces the copy. Concurrent edits after the pass therefore cannot
// make the stored bytes disagree with the digest naming them. The caller
// must run the returned cleanup on every exit path.
func (s *Store) stage(paths []string) (*staging, func(), error) {
	dir, err := os.MkdirTemp(s.cfg.CodeDir(), "staging-")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create staging dir: %w", store.ErrIO, err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	st := &staging{dir: dir, files: make([]stagedFile, 0, len(paths))}
	pairs := make([]hash.Pair, 0, len(paths))

	for _, rel := range paths {
		digest, copyPath, err := s.stageFile(dir, rel)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		st.files = append(st.files, stagedFile{Path: rel, Digest: digest, copyPath: copyPath})
		pairs = append(pairs, hash.Pair{Path: rel, Digest: digest})
	}

	// paths arrive sorted, so pairs are already in fingerprint order.
	st.fingerprint = hash.TreeDigest(pairs)
	return st, cleanup, nil
}

// stageFile copies one tracked file into dir, returning its digest and
// the copy's location.
func (s *Store) stageFile(dir, rel string) (string, string, error) {
	src, err := os.Open(filepath.Join(s.cfg.Root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", fmt.Errorf("%w: %s", store.ErrPathNotFound, rel)
		}
		return "", "", fmt.Errorf("%w: open %s: %w", store.ErrIO, rel, err)
	}
	defer src.Close()

	copyPath := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(copyPath), 0o755); err != nil {
		return "", "", fmt.Errorf("%w: stage dir for %s: %w", store.ErrIO, rel, err)
	}

	dst, err := os.Create(copyPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: stage %s: %w", store.ErrIO, rel, err)
	}

	h, err := hash.New(s.cfg.Algo)
	if err != nil {
		dst.Close()
		return "", "", err
	}

	if _, err := io.Copy(io.MultiWriter(dst, h), src); err != nil {
		dst.Close()
		return "", "", fmt.Errorf("%w: stage %s: %w", store.ErrIO, rel, err)
	}
	if err := dst.Close(); err != nil {
		return "", "", fmt.Errorf("%w: stage %s: %w", store.ErrIO, rel, err)
	}

	return hex.EncodeToString(h.Sum(nil)), copyPath, nil
}
