package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FSStore keeps objects as files under a root directory.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &FSStore{root: root}, nil
}

// Put writes to a temp file and links it into place, so readers never see a partial
// object and an existing key is never replaced.
func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create object dir")
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".tmp.%s.%d", filepath.Base(dst), os.Getpid()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "create temp object")
	}
	defer os.Remove(tmp)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrap(err, "write object")
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrap(err, "sync object")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close object")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Link(tmp, dst); err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(ErrExists, "%q", key)
		}
		return errors.Wrap(err, "link object")
	}
	return nil
}

func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, "", errors.Wrapf(ErrNotFound, "%q", key)
	}
	if err != nil {
		return nil, "", errors.Wrap(err, "open object")
	}
	return f, ContentTypeFor(key), nil
}

func (s *FSStore) Close() error { return nil }
