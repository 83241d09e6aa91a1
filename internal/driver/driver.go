// Package driver exposes the public contract of the snapshot engine to
// external collaborators (task runner, CLI).
package driver

import (
	"fmt"

	"snaptree/internal/config"
	"snaptree/internal/fs"
	"snaptree/internal/store"
	"snaptree/internal/store/snapshot"
)

// Driver is a thin facade over the snapshot store. All preconditions of
// the underlying operations apply unchanged.
type Driver struct {
	cfg   config.Config
	store *snapshot.Store
}

// New creates a driver for cfg. The root directory is owned by the
// caller and must already exist; the engine never creates or deletes it.
func New(cfg config.Config, fsys fs.FS) (*Driver, error) {
	cfg = cfg.Normalized()
	if !fsys.IsDir(cfg.Root) {
		return nil, fmt.Errorf("%w: %s", store.ErrPathNotFound, cfg.Root)
	}
	return &Driver{cfg: cfg, store: snapshot.NewStore(cfg, fsys)}, nil
}

// Config returns the configuration the driver was built with.
func (d *Driver) Config() config.Config { return d.cfg }

// Store exposes the underlying snapshot store for tooling.
func (d *Driver) Store() *snapshot.Store { return d.store }

// IsInitialized reports whether the on-disk layout exists.
func (d *Driver) IsInitialized() bool { return d.store.Initialized() }

// Initialize idempotently creates the on-disk layout.
func (d *Driver) Initialize() error { return d.store.Initialize() }

// CurrentRef returns the fingerprint of the current working tree.
func (d *Driver) CurrentRef() (string, error) { return d.store.CurrentFingerprint() }

// CreateRef commits the current tree, or validates commitID when given.
func (d *Driver) CreateRef(commitID string) (string, error) { return d.store.Commit(commitID) }

// CheckoutRef restores the tree recorded under ref.
func (d *Driver) CheckoutRef(ref string) error { return d.store.Checkout(ref) }

// ListRefs returns every recorded fingerprint.
func (d *Driver) ListRefs() ([]string, error) { return d.store.List() }

// ExistsRef reports whether ref names a snapshot.
func (d *Driver) ExistsRef(ref string) (bool, error) { return d.store.Exists(ref) }

// DeleteRef removes the snapshot's manifest; blobs are retained.
func (d *Driver) DeleteRef(ref string) error { return d.store.Delete(ref) }

// LatestRef returns the most recently created fingerprint, or "" when no
// snapshots exist.
func (d *Driver) LatestRef() (string, error) { return d.store.Latest() }

// CheckUnstagedChanges returns ErrUnstagedChanges while the working tree
// matches no snapshot, and nil once it is clean.
func (d *Driver) CheckUnstagedChanges() error {
	dirty, err := d.store.HasUnstagedChanges()
	if err != nil {
		return err
	}
	if dirty {
		return store.ErrUnstagedChanges
	}
	return nil
}
