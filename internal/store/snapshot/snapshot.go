// Package snapshot creates, enumerates, deletes and restores immutable
// snapshots of a tracked tree, orchestrating the ignore filter, the
// content hasher, the blob store and the manifest store.
package snapshot

import (
	"fmt"

	"snaptree/internal/config"
	"snaptree/internal/fs"
	"snaptree/internal/ignore"
	"snaptree/internal/store"
	"snaptree/internal/store/blob"
	"snaptree/internal/store/manifest"
)

// Store is the snapshot engine for one root directory.
//
// Single-caller, synchronous: no internal goroutines, no locking. Two
// callers mutating the same root concurrently are outside the contract;
// a racing edit during commit is detected lazily by the next
// HasUnstagedChanges call, never silently persisted, because blobs are
// captured from the same read pass as the digests that name them.
type Store struct {
	cfg       config.Config
	fsys      fs.FS
	Manifests *manifest.Store
	Blobs     *blob.Store
}

// NewStore creates a snapshot store for cfg.
func NewStore(cfg config.Config, fsys fs.FS) *Store {
	cfg = cfg.Normalized()
	return &Store{
		cfg:       cfg,
		fsys:      fsys,
		Manifests: manifest.NewStore(cfg.CodeDir(), fsys),
		Blobs:     blob.NewStore(cfg.CodeDir(), fsys),
	}
}

// Config returns the configuration the store was built with.
func (s *Store) Config() config.Config { return s.cfg }

// Initialized reports whether the on-disk layout exists.
func (s *Store) Initialized() bool {
	return s.fsys.IsDir(s.cfg.MetaDir()) && s.fsys.IsDir(s.cfg.CodeDir())
}

// Initialize idempotently creates the on-disk layout.
func (s *Store) Initialize() error {
	if err := s.fsys.MkdirAll(s.cfg.CodeDir(), 0o755); err != nil {
		return fmt.Errorf("%w: create layout: %w", store.ErrIO, err)
	}
	return nil
}

func (s *Store) requireInit() error {
	if !s.Initialized() {
		return fmt.Errorf("%w: %s", store.ErrNotInitialized, s.cfg.MetaDir())
	}
	return nil
}

// CurrentFingerprint computes the fingerprint of the working tree. No side
// effects beyond a temp directory that is removed before returning.
func (s *Store) CurrentFingerprint() (string, error) {
	if err := s.requireInit(); err != nil {
		return "", err
	}
	paths, err := ignore.TrackedPaths(s.cfg)
	if err != nil {
		return "", err
	}
	st, cleanup, err := s.stage(paths)
	if err != nil {
		return "", err
	}
	defer cleanup()
	return st.fingerprint, nil
}

// HasUnstagedChanges reports whether the working tree differs from every
// recorded snapshot. With zero tracked files it is true exactly while no
// snapshot exists, which forces one (possibly empty) commit before the
// tree is ever considered clean.
func (s *Store) HasUnstagedChanges() (bool, error) {
	if err := s.requireInit(); err != nil {
		return false, err
	}

	paths, err := ignore.TrackedPaths(s.cfg)
	if err != nil {
		return false, err
	}

	if len(paths) == 0 {
		fingerprints, err := s.Manifests.List()
		if err != nil {
			return false, err
		}
		return len(fingerprints) == 0, nil
	}

	st, cleanup, err := s.stage(paths)
	if err != nil {
		return false, err
	}
	defer cleanup()

	return !s.Manifests.Exists(st.fingerprint), nil
}

// Commit records the current tree as a snapshot and returns its
// fingerprint.
//
// With a non-empty commitID it is a lookup: the id must name an existing
// snapshot and is returned unchanged. Otherwise, committing an unchanged
// tree is a no-op returning the existing fingerprint; a new tree stores
// one blob per tracked file (from the staged copies, so the bytes are
// exactly the ones that were hashed) and then publishes the manifest
// atomically.
func (s *Store) Commit(commitID string) (string, error) {
	if err := s.requireInit(); err != nil {
		return "", err
	}

	if commitID != "" {
		if !s.Manifests.Exists(commitID) {
			return "", fmt.Errorf("%w: %s", store.ErrCommitNotFound, commitID)
		}
		return commitID, nil
	}

	paths, err := ignore.TrackedPaths(s.cfg)
	if err != nil {
		return "", err
	}
	st, cleanup, err := s.stage(paths)
	if err != nil {
		return "", err
	}
	defer cleanup()

	if s.Manifests.Exists(st.fingerprint) {
		return st.fingerprint, nil
	}

	entries := make([]manifest.Entry, 0, len(st.files))
	for _, f := range st.files {
		rc, err := s.fsys.Open(f.copyPath)
		if err != nil {
			return "", fmt.Errorf("%w: reopen staged %s: %w", store.ErrIO, f.Path, err)
		}
		err = s.Blobs.Put(f.Path, f.Digest, rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: %w", store.ErrIO, err)
		}
		entries = append(entries, manifest.Entry{Path: f.Path, Digest: f.Digest})
	}

	if err := s.Manifests.Save(st.fingerprint, entries); err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrIO, err)
	}
	return st.fingerprint, nil
}

// List returns the fingerprints of all snapshots.
func (s *Store) List() ([]string, error) {
	if err := s.requireInit(); err != nil {
		return nil, err
	}
	return s.Manifests.List()
}

// Exists reports whether a snapshot exists for fingerprint.
func (s *Store) Exists(fingerprint string) (bool, error) {
	if err := s.requireInit(); err != nil {
		return false, err
	}
	return s.Manifests.Exists(fingerprint), nil
}

// Latest returns the most recently created fingerprint, or "" when no
// snapshots exist.
func (s *Store) Latest() (string, error) {
	if err := s.requireInit(); err != nil {
		return "", err
	}
	return s.Manifests.Latest()
}

// Delete removes a snapshot's manifest. Blobs stay: they may be shared by
// other snapshots of the same path at the same digest.
func (s *Store) Delete(fingerprint string) error {
	if err := s.requireInit(); err != nil {
		return err
	}
	return s.Manifests.Delete(fingerprint)
}
