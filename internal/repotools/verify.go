// Package repotools holds maintenance tooling layered on top of the
// snapshot store: blob integrity verification and working-tree diffing.
package repotools

import (
	"fmt"
	"sort"

	"snaptree/internal/hash"
	"snaptree/internal/store/manifest"
	"snaptree/internal/store/snapshot"
	"snaptree/internal/util"
)

// BlobStatus indicates the state of one stored blob.
type BlobStatus int

const (
	OK BlobStatus = iota
	Missing
	Damaged
)

func (s BlobStatus) String() string {
	switch s {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	case Damaged:
		return "damaged"
	default:
		return "unknown"
	}
}

// BlobCheck is the verification result for one (path, digest) blob.
type BlobCheck struct {
	Path   string
	Digest string
	Status BlobStatus
	Refs   []string // fingerprints of snapshots referencing the blob
}

type blobKey struct {
	path   string
	digest string
}

// VerifyStream re-digests every blob referenced by any manifest and
// streams one BlobCheck per blob. Verification runs on a bounded worker
// pool; results arrive in no particular order.
func VerifyStream(s *snapshot.Store) (<-chan BlobCheck, <-chan error) {
	out := make(chan BlobCheck, 128)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		refs, err := referencedBlobs(s)
		if err != nil {
			errCh <- err
			return
		}

		keys := make([]blobKey, 0, len(refs))
		for k := range refs {
			keys = append(keys, k)
		}

		algo := s.Config().Algo
		_ = util.Parallel(keys, util.WorkerCount(), func(k blobKey) error {
			out <- BlobCheck{
				Path:   k.path,
				Digest: k.digest,
				Status: checkBlob(s, k, algo),
				Refs:   util.SortedKeys(refs[k]),
			}
			return nil
		})
	}()

	return out, errCh
}

// Verify checks all referenced blobs and fails on the first one that is
// missing or damaged.
func Verify(s *snapshot.Store) error {
	out, errCh := VerifyStream(s)
	for bc := range out {
		if bc.Status != OK {
			return fmt.Errorf("blob %s@%s is %s (referenced by %v)",
				bc.Path, bc.Digest, bc.Status, bc.Refs)
		}
	}
	return <-errCh
}

// referencedBlobs walks every manifest and maps each (path, digest) to the
// set of fingerprints referencing it.
func referencedBlobs(s *snapshot.Store) (map[blobKey]map[string]bool, error) {
	fingerprints, err := s.List()
	if err != nil {
		return nil, err
	}
	sort.Strings(fingerprints)

	refs := make(map[blobKey]map[string]bool)
	for _, fp := range fingerprints {
		entries, err := s.Manifests.Load(fp)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			k := blobKey{path: e.Path, digest: e.Digest}
			if refs[k] == nil {
				refs[k] = make(map[string]bool)
			}
			refs[k][fp] = true
		}
	}
	return refs, nil
}

func checkBlob(s *snapshot.Store, k blobKey, algo string) BlobStatus {
	if !s.Blobs.Exists(k.path, k.digest) {
		return Missing
	}
	rc, err := s.Blobs.Open(k.path, k.digest)
	if err != nil {
		return Damaged
	}
	defer rc.Close()

	actual, err := hash.DigestReader(rc, algo)
	if err != nil || actual != k.digest {
		return Damaged
	}
	return OK
}

// entryIndex maps a manifest's entries by path.
func entryIndex(entries []manifest.Entry) map[string]string {
	idx := make(map[string]string, len(entries))
	for _, e := range entries {
		idx[e.Path] = e.Digest
	}
	return idx
}
