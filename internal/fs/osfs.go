package fs

import (
	"io"
	"os"
)

// OSFS implements FS on top of the real filesystem.
type OSFS struct{}

// NewOSFS returns an FS backed by the os package.
func NewOSFS() *OSFS { return &OSFS{} }

func (*OSFS) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (*OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (*OSFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (*OSFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (*OSFS) Remove(path string) error {
	return os.Remove(path)
}

func (*OSFS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (*OSFS) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (*OSFS) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (*OSFS) CreateTempFile(dir, pattern string) (io.WriteCloser, string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, "", err
	}
	return f, f.Name(), nil
}

func (*OSFS) IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

func (*OSFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (*OSFS) IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
