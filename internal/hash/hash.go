// Package hash computes content digests for single files and whole trees.
//
// The per-file algorithm is selectable (blake3 by default); the tree
// fingerprint always uses BLAKE3-256 so snapshot identity stays
// collision-resistant regardless of the per-file choice.
package hash

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/minio/highwayhash"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/mmap"

	"snaptree/internal/store"
)

const (
	AlgoBLAKE3  = "blake3"
	AlgoXXH3    = "xxh3"
	AlgoHighway = "highwayhash"
)

const (
	readBufSize   = 32 * 1024       // streaming read buffer
	mmapThreshold = 4 * 1024 * 1024 // mmap files of at least this size
)

// highwayKey is the fixed key for the highwayhash algorithm. Digests are
// fingerprints, not MACs, so the key only needs to be stable.
var highwayKey = [32]byte{
	0x73, 0x6e, 0x61, 0x70, 0x74, 0x72, 0x65, 0x65,
	0x2d, 0x62, 0x6c, 0x6f, 0x62, 0x2d, 0x66, 0x70,
	0x24, 0x3f, 0x6a, 0x88, 0x85, 0xa3, 0x08, 0xd3,
	0x13, 0x19, 0x8a, 0x2e, 0x03, 0x70, 0x73, 0x44,
}

// xxh3Hash adapts xxh3's streaming hasher to hash.Hash with a 128-bit sum.
type xxh3Hash struct {
	*xxh3.Hasher
}

func (x xxh3Hash) Sum(b []byte) []byte {
	d := x.Sum128().Bytes()
	return append(b, d[:]...)
}

func (x xxh3Hash) Size() int { return 16 }

// New returns a streaming hasher for the named algorithm.
func New(algo string) (hash.Hash, error) {
	switch algo {
	case AlgoBLAKE3, "":
		return blake3.New(), nil
	case AlgoXXH3:
		return xxh3Hash{xxh3.New()}, nil
	case AlgoHighway:
		return highwayhash.New(highwayKey[:])
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", algo)
	}
}

// SumBytes digests data in memory with the named algorithm.
func SumBytes(algo string, data []byte) (string, error) {
	h, err := New(algo)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileDigest streams the file at path through the named algorithm in
// bounded chunks; memory use is independent of file size. Large files are
// read through a memory map when the platform allows it.
func FileDigest(path, algo string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", store.ErrPathNotFound, path)
		}
		return "", fmt.Errorf("stat %q: %w", path, err)
	}

	h, err := New(algo)
	if err != nil {
		return "", err
	}

	if fi.Size() >= mmapThreshold {
		if d, err := mmapDigest(path, fi.Size(), h); err == nil {
			return d, nil
		}
		h.Reset()
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", store.ErrPathNotFound, path)
		}
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	return digestFrom(f, h, path)
}

// DigestReader folds everything read from r into a fresh hasher for algo.
func DigestReader(r io.Reader, algo string) (string, error) {
	h, err := New(algo)
	if err != nil {
		return "", err
	}
	return digestFrom(r, h, "")
}

func digestFrom(r io.Reader, h hash.Hash, label string) (string, error) {
	buf := make([]byte, readBufSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("hash %q: %w", label, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// mmapDigest reads the file through a memory map in readBufSize chunks.
func mmapDigest(path string, size int64, h hash.Hash) (string, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	sr := io.NewSectionReader(r, 0, size)
	return digestFrom(sr, h, path)
}
