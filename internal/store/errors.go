// Package store defines the error taxonomy shared by the blob, manifest
// and snapshot layers.
package store

import "errors"

var (
	// ErrNotInitialized means the on-disk layout is missing; calling
	// Initialize on the driver recovers from it.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrPathNotFound means the root, or a tracked file, vanished between
	// enumeration and read.
	ErrPathNotFound = errors.New("path does not exist")

	// ErrCommitNotFound means the referenced fingerprint has no manifest.
	ErrCommitNotFound = errors.New("commit does not exist")

	// ErrUnstagedChanges blocks checkout while the working tree does not
	// match any snapshot.
	ErrUnstagedChanges = errors.New("unstaged changes present")

	// ErrMissingBlob means a manifest references content the blob store
	// does not hold.
	ErrMissingBlob = errors.New("missing blob")

	// ErrMalformedManifest means a manifest record failed to parse; the
	// snapshot it names is unusable, others are unaffected.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrIO wraps underlying filesystem failures during manifest writes or
	// blob reads/writes. Not retried: these are typically permission or
	// disk-space problems.
	ErrIO = errors.New("io failure")
)
