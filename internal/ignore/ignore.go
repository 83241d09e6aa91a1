// Package ignore decides which files under a root are tracked.
//
// Patterns use gitignore syntax: *, ?, **, character classes, trailing-/
// directory patterns, leading-/ anchoring and ! negation. The last
// matching pattern wins.
package ignore

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"snaptree/internal/config"
	"snaptree/internal/store"
)

// Ruleset is an ordered list of ignore rules evaluated relative to a root.
type Ruleset struct {
	rules []rule
}

// NewRuleset builds the ruleset for cfg: the metadata directory, the legacy
// SCM directory, and — if present — every pattern in the user ignore file.
func NewRuleset(cfg config.Config) (*Ruleset, error) {
	rs := &Ruleset{}

	if err := rs.Add(cfg.MetaDirName + "/"); err != nil {
		return nil, err
	}
	if err := rs.Add(config.LegacySCMDir + "/"); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.IgnorePath())
	if err != nil {
		if os.IsNotExist(err) {
			return rs, nil
		}
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := rs.Add(line); err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}

	return rs, nil
}

// Add appends one pattern to the ruleset.
func (rs *Ruleset) Add(pattern string) error {
	r, err := compile(pattern)
	if err != nil {
		return err
	}
	rs.rules = append(rs.rules, r)
	return nil
}

// Ignored reports whether the slash-separated relative path is excluded.
// Rules are evaluated in order; the last match decides.
func (rs *Ruleset) Ignored(rel string, isDir bool) bool {
	ignored := false
	for _, r := range rs.rules {
		if r.match(rel, isDir) {
			ignored = !r.negate
		}
	}
	return ignored
}

// TrackedPaths walks the root and returns the sorted, slash-normalized set
// of relative paths of regular files not excluded by the ruleset. Pure
// function of filesystem state; nothing is cached.
func TrackedPaths(cfg config.Config) ([]string, error) {
	if fi, err := os.Stat(cfg.Root); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", store.ErrPathNotFound, cfg.Root)
	}

	rs, err := NewRuleset(cfg)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == cfg.Root {
			return nil
		}

		rel, err := filepath.Rel(cfg.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			// An ignored directory excludes all descendants; negation
			// cannot re-include below it, so pruning is safe.
			if rs.Ignored(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks and other irregular entries are never tracked.
		if !d.Type().IsRegular() {
			return nil
		}

		if rs.Ignored(rel, false) {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}
