package util

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaptree/internal/fs"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	require.NoError(t, WriteFileAtomic(fs.NewOSFS(), path, []byte("hello"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// No temp files left next to the target.
	dirents, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, dirents, 1)
	assert.Equal(t, "out.txt", dirents[0].Name())
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	osfs := fs.NewOSFS()

	require.NoError(t, WriteFileAtomic(osfs, path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(osfs, path, []byte("two"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
	assert.Empty(t, SortedKeys(map[string]int{}))
}

func TestParallelProcessesAll(t *testing.T) {
	inputs := make([]int, 100)
	for i := range inputs {
		inputs[i] = i
	}

	var sum int64
	err := Parallel(inputs, WorkerCount(), func(n int) error {
		atomic.AddInt64(&sum, int64(n))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4950), sum)
}

func TestParallelReturnsError(t *testing.T) {
	boom := errors.New("boom")
	var calls int64
	err := Parallel([]int{1, 2, 3, 4}, 2, func(n int) error {
		atomic.AddInt64(&calls, 1)
		if n == 3 {
			return boom
		}
		return nil
	})
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, int64(4), calls, "all items processed despite the error")
}

func TestParallelEmptyInput(t *testing.T) {
	assert.NoError(t, Parallel(nil, 4, func(int) error { return errors.New("never") }))
}
