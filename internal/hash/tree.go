package hash

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Pair is one (tracked path, file digest) element of a tree.
type Pair struct {
	Path   string
	Digest string
}

// TreeDigest derives the fingerprint of an entire tree from its ordered
// (path, digest) pairs. Pairs must already be sorted by path.
//
// Each pair is fed as "path NUL digest NUL" into a single BLAKE3 hasher:
// NUL cannot appear in a path, so the encoding is prefix-free without
// escaping. Only relative paths go in, which keeps the fingerprint
// independent of where the tree physically lives. The empty sequence has a
// well-defined digest.
func TreeDigest(pairs []Pair) string {
	h := blake3.New()
	for _, p := range pairs {
		h.Write([]byte(p.Path))
		h.Write([]byte{0})
		h.Write([]byte(p.Digest))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
