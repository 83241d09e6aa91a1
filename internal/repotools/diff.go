package repotools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"snaptree/internal/hash"
	"snaptree/internal/ignore"
	"snaptree/internal/store"
	"snaptree/internal/store/snapshot"
)

// TreeDiff describes how the working tree differs from one snapshot.
type TreeDiff struct {
	Added    []string // tracked now, absent from the snapshot
	Removed  []string // in the snapshot, not tracked now
	Modified []string // present in both with different content
}

// Empty reports whether the working tree matches the snapshot.
func (d TreeDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// DiffWorkingTree compares the current tracked tree against the snapshot
// named by ref.
func DiffWorkingTree(s *snapshot.Store, ref string) (TreeDiff, error) {
	ok, err := s.Exists(ref)
	if err != nil {
		return TreeDiff{}, err
	}
	if !ok {
		return TreeDiff{}, fmt.Errorf("%w: %s", store.ErrCommitNotFound, ref)
	}

	entries, err := s.Manifests.Load(ref)
	if err != nil {
		return TreeDiff{}, err
	}
	recorded := entryIndex(entries)

	cfg := s.Config()
	tracked, err := ignore.TrackedPaths(cfg)
	if err != nil {
		return TreeDiff{}, err
	}

	var d TreeDiff
	seen := make(map[string]bool, len(tracked))
	for _, rel := range tracked {
		seen[rel] = true
		digest, ok := recorded[rel]
		if !ok {
			d.Added = append(d.Added, rel)
			continue
		}
		current, err := hash.FileDigest(filepath.Join(cfg.Root, filepath.FromSlash(rel)), cfg.Algo)
		if err != nil {
			return TreeDiff{}, err
		}
		if current != digest {
			d.Modified = append(d.Modified, rel)
		}
	}
	for rel := range recorded {
		if !seen[rel] {
			d.Removed = append(d.Removed, rel)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Modified)
	return d, nil
}

// UnifiedDiffs renders a unified diff per modified file, blob content on
// the left, working-tree content on the right.
func UnifiedDiffs(s *snapshot.Store, ref string, d TreeDiff) (map[string]string, error) {
	entries, err := s.Manifests.Load(ref)
	if err != nil {
		return nil, err
	}
	recorded := entryIndex(entries)

	cfg := s.Config()
	out := make(map[string]string, len(d.Modified))
	for _, rel := range d.Modified {
		old, err := s.Blobs.Get(rel, recorded[rel])
		if err != nil {
			return nil, err
		}
		now, err := os.ReadFile(filepath.Join(cfg.Root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", rel, err)
		}

		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(old)),
			B:        difflib.SplitLines(string(now)),
			FromFile: "a/" + rel,
			ToFile:   "b/" + rel,
			Context:  3,
		})
		if err != nil {
			return nil, fmt.Errorf("diff %s: %w", rel, err)
		}
		out[rel] = text
	}
	return out, nil
}
