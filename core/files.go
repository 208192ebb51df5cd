package core

import "io"

// StoredFile describes a blob written by a FileStore.
type StoredFile struct {
	Name string // sanitized client file name
	Path string // path relative to the store root
	Size int64
}

// FileStore saves, serves and removes blobs under a root directory.
// Paths are always relative to the root and use forward slashes.
type FileStore interface {
	// Save writes r under dir with a generated unique name derived from filename.
	Save(dir, filename string, r io.Reader) (StoredFile, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
	MkdirAll(dir string) error
	RemoveAll(dir string) error
	Exists(path string) bool
}
