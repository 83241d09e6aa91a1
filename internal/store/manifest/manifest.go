// Package manifest owns the on-disk commit record format.
//
// One regular file per snapshot lives directly in the code directory,
// named by the tree fingerprint (hex). Each line is
// "relative/path,file_digest_hex" in sorted-path order. Blob namespaces
// share the same directory as subdirectories, so listing only considers
// regular files with hex names.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"snaptree/internal/fs"
	"snaptree/internal/store"
	"snaptree/internal/util"
)

// Entry is one (tracked path, file digest) record of a manifest.
type Entry struct {
	Path   string
	Digest string
}

// Store reads and writes manifests in Dir.
type Store struct {
	Dir string
	FS  fs.FS
}

// NewStore creates a manifest store rooted at dir.
func NewStore(dir string, fsys fs.FS) *Store {
	return &Store{Dir: dir, FS: fsys}
}

func (s *Store) manifestPath(fingerprint string) string {
	return filepath.Join(s.Dir, fingerprint)
}

// Encode renders entries in the on-disk line format. Entries must already
// be in sorted-path order.
func Encode(entries []Entry) []byte {
	var b bytes.Buffer
	for _, e := range entries {
		b.WriteString(e.Path)
		b.WriteByte(',')
		b.WriteString(e.Digest)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// parseLine splits one record on its last comma: the digest is hex and
// cannot contain one, so paths containing commas round-trip.
func parseLine(line string) (Entry, error) {
	i := strings.LastIndexByte(line, ',')
	if i <= 0 || i == len(line)-1 {
		return Entry{}, fmt.Errorf("%w: bad record %q", store.ErrMalformedManifest, line)
	}
	return Entry{Path: line[:i], Digest: line[i+1:]}, nil
}

// Save atomically publishes the manifest for fingerprint: the full content
// is written to a temp file and renamed into place, so a crash mid-write
// never leaves a truncated manifest resolvable as a valid snapshot.
func (s *Store) Save(fingerprint string, entries []Entry) error {
	if fingerprint == "" {
		return fmt.Errorf("save manifest: empty fingerprint")
	}
	if err := util.WriteFileAtomic(s.FS, s.manifestPath(fingerprint), Encode(entries), 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", fingerprint, err)
	}
	return nil
}

// Load reads and parses the manifest for fingerprint.
func (s *Store) Load(fingerprint string) ([]Entry, error) {
	data, err := s.FS.ReadFile(s.manifestPath(fingerprint))
	if err != nil {
		if s.FS.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrCommitNotFound, fingerprint)
		}
		return nil, fmt.Errorf("read manifest %s: %w", fingerprint, err)
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", fingerprint, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest %s: %w", fingerprint, err)
	}
	return entries, nil
}

// List returns the fingerprints of every manifest present.
func (s *Store) List() ([]string, error) {
	dirents, err := s.FS.ReadDir(s.Dir)
	if err != nil {
		if s.FS.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list manifests: %w", err)
	}

	var out []string
	for _, de := range dirents {
		if de.IsDir() || !isHex(de.Name()) {
			continue
		}
		out = append(out, de.Name())
	}
	return out, nil
}

// Exists reports whether a manifest exists for fingerprint.
func (s *Store) Exists(fingerprint string) bool {
	return !s.FS.IsDir(s.manifestPath(fingerprint)) && s.FS.Exists(s.manifestPath(fingerprint))
}

// Latest returns the most recently created fingerprint, judged by manifest
// modification time with a lexicographic tie-break, or "" when no
// snapshots exist.
func (s *Store) Latest() (string, error) {
	fingerprints, err := s.List()
	if err != nil {
		return "", err
	}

	best := ""
	var bestMod int64
	for _, fp := range fingerprints {
		fi, err := s.FS.Stat(s.manifestPath(fp))
		if err != nil {
			continue
		}
		mod := fi.ModTime().UnixNano()
		if best == "" || mod > bestMod || (mod == bestMod && fp > best) {
			best, bestMod = fp, mod
		}
	}
	return best, nil
}

// Delete removes the manifest only; blobs are never garbage-collected,
// since other snapshots may reference the same (path, digest).
func (s *Store) Delete(fingerprint string) error {
	if !s.Exists(fingerprint) {
		return fmt.Errorf("%w: %s", store.ErrCommitNotFound, fingerprint)
	}
	if err := s.FS.Remove(s.manifestPath(fingerprint)); err != nil {
		return fmt.Errorf("delete manifest %s: %w", fingerprint, err)
	}
	return nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
