package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores objects as flat files under a single directory.
type Local struct {
	dir string
}

// NewLocal creates the upload directory if needed and returns a disk store.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, err
	}
	return &Local{dir: abs}, nil
}

// Dir returns the absolute upload directory.
func (l *Local) Dir() string { return l.dir }

func (l *Local) objectPath(name string) string {
	// Names are generated server-side without separators; Base is a
	// second line of defense against traversal.
	return filepath.Join(l.dir, filepath.Base(name))
}

func (l *Local) Save(ctx context.Context, name string, r io.Reader) (int64, string, error) {
	path := l.objectPath(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, "", err
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, "", err
	}
	return n, path, nil
}

func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(l.objectPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (l *Local) Remove(ctx context.Context, name string) error {
	return os.Remove(l.objectPath(name))
}
