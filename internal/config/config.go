package config

import "path/filepath"

const (
	// DefaultMetaDir is the metadata directory created under the root.
	DefaultMetaDir = ".snaptree"

	// DefaultIgnoreFile is the optional user ignore file at the root.
	DefaultIgnoreFile = ".snaptreeignore"

	// LegacySCMDir is always excluded from tracking.
	LegacySCMDir = ".git"

	// CodeDirName is the subdirectory of the metadata dir holding
	// manifests and blobs.
	CodeDirName = "code"
)

const (
	DefaultAlgo = "blake3" // "blake3" | "xxh3" | "highwayhash"
)

// Config carries everything the engine needs to know about one root.
// It is an explicit value passed into constructors; there is no
// process-wide configuration state.
type Config struct {
	Root           string // absolute path of the working tree
	MetaDirName    string // e.g. ".snaptree"
	IgnoreFileName string // e.g. ".snaptreeignore"
	Algo           string // per-file digest algorithm
}

// Default returns a Config for root with all defaults filled in.
func Default(root string) Config {
	return Config{
		Root:           root,
		MetaDirName:    DefaultMetaDir,
		IgnoreFileName: DefaultIgnoreFile,
		Algo:           DefaultAlgo,
	}
}

// Normalized returns a copy with empty fields replaced by defaults.
func (c Config) Normalized() Config {
	if c.MetaDirName == "" {
		c.MetaDirName = DefaultMetaDir
	}
	if c.IgnoreFileName == "" {
		c.IgnoreFileName = DefaultIgnoreFile
	}
	if c.Algo == "" {
		c.Algo = DefaultAlgo
	}
	return c
}

// MetaDir returns the metadata directory path (<root>/<metaDirName>).
func (c Config) MetaDir() string {
	return filepath.Join(c.Root, c.MetaDirName)
}

// CodeDir returns the manifest/blob directory (<root>/<metaDirName>/code).
func (c Config) CodeDir() string {
	return filepath.Join(c.MetaDir(), CodeDirName)
}

// IgnorePath returns the path of the optional user ignore file.
func (c Config) IgnorePath() string {
	return filepath.Join(c.Root, c.IgnoreFileName)
}
