package filestore

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core"
)

var (
	ErrInvalidPath = errors.New("invalid path")

	unsafeChars = regexp.MustCompile(`[^\w.\-]+`)
)

// LocalStore keeps blobs on the local disk, under root.
type LocalStore struct {
	root string
}

var _ core.FileStore = (*LocalStore)(nil)

func NewLocalStore(conf *core.Config) (*LocalStore, error) {
	return NewLocalStoreAt(conf.Storage.UploadDir)
}

func NewLocalStoreAt(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload directory")
	}
	return &LocalStore{root: root}, nil
}

func (s LocalStore) Root() string {
	return s.root
}

// CleanFilename keeps the base name of a client supplied file name and replaces
// everything but letters, digits, dots, dashes and underscores.
func CleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_"), "._")
	if name == "" {
		return "file"
	}
	return name
}

// abs resolves a store path, refusing anything that would leave the root.
func (s LocalStore) abs(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
	if clean == "/" {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean[1:])), nil
}

func (s LocalStore) Save(dir, filename string, r io.Reader) (core.StoredFile, error) {
	name := CleanFilename(filename)
	rel := path.Join(dir, uuid.New().String()+"_"+name)
	dst, err := s.abs(rel)
	if err != nil {
		return core.StoredFile{}, err
	}
	if err = os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "creating directory")
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return core.StoredFile{}, errors.Wrap(err, "creating file")
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return core.StoredFile{}, errors.Wrap(err, "writing file")
	}
	return core.StoredFile{Name: name, Path: rel, Size: n}, nil
}

func (s LocalStore) Open(p string) (io.ReadCloser, error) {
	src, err := s.abs(p)
	if err != nil {
		return nil, err
	}
	return os.Open(src)
}

// Remove deletes one file. Missing files are not an error.
func (s LocalStore) Remove(p string) error {
	dst, err := s.abs(p)
	if err != nil {
		return err
	}
	if err = os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s LocalStore) MkdirAll(dir string) error {
	dst, err := s.abs(dir)
	if err != nil {
		return err
	}
	return os.MkdirAll(dst, 0o755)
}

func (s LocalStore) RemoveAll(dir string) error {
	dst, err := s.abs(dir)
	if err != nil {
		return err
	}
	return os.RemoveAll(dst)
}

func (s LocalStore) Exists(p string) bool {
	dst, err := s.abs(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(dst)
	return err == nil
}
