package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	"snaptree/internal/ignore"
	"snaptree/internal/store"
	"snaptree/internal/util"
)

// Checkout restores the tree recorded by fingerprint into the root.
//
// It refuses to run over unstaged changes, so un-snapshotted work is never
// silently discarded. Restoring is a no-op when the working tree already
// matches the target. Ignored paths are never touched.
func (s *Store) Checkout(fingerprint string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	if !s.Manifests.Exists(fingerprint) {
		return fmt.Errorf("%w: %s", store.ErrCommitNotFound, fingerprint)
	}

	paths, err := ignore.TrackedPaths(s.cfg)
	if err != nil {
		return err
	}

	st, cleanup, err := s.stage(paths)
	if err != nil {
		return err
	}
	current := st.fingerprint
	cleanup()

	dirty := !s.Manifests.Exists(current)
	if len(paths) == 0 {
		fingerprints, err := s.Manifests.List()
		if err != nil {
			return err
		}
		dirty = len(fingerprints) == 0
	}
	if dirty {
		return fmt.Errorf("%w: commit or discard before checkout", store.ErrUnstagedChanges)
	}

	if current == fingerprint {
		return nil
	}

	// Best-effort removal of the current tracked files: one stuck file
	// must not stop the rest of the restore. This is the only place an
	// error is deliberately swallowed.
	for _, rel := range paths {
		_ = os.Remove(filepath.Join(s.cfg.Root, filepath.FromSlash(rel)))
	}

	entries, err := s.Manifests.Load(fingerprint)
	if err != nil {
		return err
	}

	for _, e := range entries {
		data, err := s.Blobs.Get(e.Path, e.Digest)
		if err != nil {
			// A manifest pointing at an absent blob means the store is
			// corrupt; fatal.
			return fmt.Errorf("%w: restore %s: %w", store.ErrIO, e.Path, err)
		}
		dst := filepath.Join(s.cfg.Root, filepath.FromSlash(e.Path))
		if err := util.WriteFileAtomic(s.fsys, dst, data, 0o644); err != nil {
			return fmt.Errorf("%w: restore %s: %w", store.ErrIO, e.Path, err)
		}
	}
	return nil
}
